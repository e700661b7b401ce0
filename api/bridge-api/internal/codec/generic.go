// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_codec

import "github.com/voxbridgeai/pkg/commons"

// NewGenericCodec returns the inbound test variant: the dialect A vocabulary
// with validation relaxed, so scripted validators can open sessions without
// the full contact-center handshake.
func NewGenericCodec(logger commons.Logger) WireCodec {
	return &audiocodesCodec{logger: logger, name: DialectGeneric, strict: false}
}
