// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	internal_executor "github.com/voxbridgeai/api/bridge-api/internal/executor"
	internal_realtime "github.com/voxbridgeai/api/bridge-api/internal/realtime"
	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
	"github.com/voxbridgeai/pkg/commons"
	"github.com/voxbridgeai/pkg/utils"
)

const DefaultToolTimeout = 30 * time.Second

// PendingToolCall collects one streamed invocation: the name captured from
// output_item.added and argument fragments from the delta events. At most one
// per call_id.
type PendingToolCall struct {
	CallID     string
	Name       string
	ResponseID string
	args       strings.Builder
}

// Result is one finished invocation, delivered on the dispatcher's results
// channel for the bridge to relay.
type Result struct {
	CallID    string
	Name      string
	Output    map[string]interface{}
	Directive internal_type.Directive
}

// Dispatcher tracks pending tool calls for one call. The event-facing methods
// (OnOutputItemAdded, OnArgumentsDelta, OnArgumentsDone) run on the call's
// router task; invocations run in the background on the executor.
type Dispatcher struct {
	logger   commons.Logger
	registry *Registry
	exec     *internal_executor.Executor
	callID   string
	timeout  time.Duration

	pending map[string]*PendingToolCall
	results chan Result
	done    chan struct{}
}

type DispatcherOption func(*Dispatcher)

func WithToolTimeout(d time.Duration) DispatcherOption {
	return func(d2 *Dispatcher) { d2.timeout = d }
}

func NewDispatcher(logger commons.Logger, registry *Registry, exec *internal_executor.Executor, callID string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger:   logger,
		registry: registry,
		exec:     exec,
		callID:   callID,
		timeout:  DefaultToolTimeout,
		pending:  make(map[string]*PendingToolCall),
		results:  make(chan Result, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Results yields finished invocations. The bridge sends each as a function
// result followed by a response.create.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Close stops result delivery. In-flight tool work is cancelled separately by
// the executor's call-id prefix.
func (d *Dispatcher) Close() {
	close(d.done)
}

// OnOutputItemAdded captures the function name when the AI peer announces a
// function_call output item.
func (d *Dispatcher) OnOutputItemAdded(ev internal_realtime.ServerEvent) {
	if ev.Item == nil || ev.Item.Type != "function_call" {
		return
	}
	p := d.ensurePending(ev.Item.CallID)
	p.Name = ev.Item.Name
	p.ResponseID = ev.ResponseID
	if len(d.pending) > 1 {
		d.logger.Warnw("multiple simultaneous function calls pending",
			"call", d.callID, "pending", len(d.pending))
	}
}

// OnArgumentsDelta appends one argument JSON fragment.
func (d *Dispatcher) OnArgumentsDelta(ev internal_realtime.ServerEvent) {
	p := d.ensurePending(ev.CallID)
	p.args.WriteString(ev.Delta)
}

// OnArgumentsDone finalizes the invocation: resolve the tool, parse the
// arguments (preferring the done event's full text over the accumulated
// buffer), and run it in the background. Every failure mode produces a
// normal Result with an error object; the conversation never stalls.
func (d *Dispatcher) OnArgumentsDone(ev internal_realtime.ServerEvent) {
	p := d.ensurePending(ev.CallID)
	delete(d.pending, ev.CallID)

	name := utils.FirstNonEmpty(p.Name, ev.Name)
	argText := utils.FirstNonEmpty(ev.Arguments, p.args.String())

	tool, ok := d.registry.Get(name)
	if !ok {
		d.logger.Warnw("tool not implemented", "call", d.callID, "function", name)
		d.deliver(Result{
			CallID: ev.CallID,
			Name:   name,
			Output: map[string]interface{}{"error": "not_implemented", "function": name},
		})
		return
	}

	args := map[string]interface{}{}
	if strings.TrimSpace(argText) != "" {
		if err := json.Unmarshal([]byte(argText), &args); err != nil {
			d.logger.Warnw("tool arguments unparsable", "call", d.callID, "function", name, "error", err)
			d.deliver(Result{
				CallID: ev.CallID,
				Name:   name,
				Output: map[string]interface{}{"error": "invalid_arguments"},
			})
			return
		}
	}

	key := internal_executor.KeyFor(d.callID, "tool-"+name)
	err := d.exec.Submit(context.Background(), key, d.timeout, func(ctx context.Context) (interface{}, error) {
		return tool.Invoke(ctx, args)
	})
	if err != nil {
		d.deliver(Result{
			CallID: ev.CallID,
			Name:   name,
			Output: map[string]interface{}{"error": err.Error()},
		})
		return
	}

	utils.Go(context.Background(), func() {
		raw, invokeErr := d.exec.Await(context.Background(), key)
		result := Result{CallID: ev.CallID, Name: name}
		switch {
		case errors.Is(invokeErr, internal_executor.ErrTaskTimeout):
			result.Output = map[string]interface{}{"error": "timeout"}
		case errors.Is(invokeErr, context.Canceled):
			// call ended; the router is gone and the result is discarded
			return
		case invokeErr != nil:
			result.Output = map[string]interface{}{"error": invokeErr.Error()}
		default:
			output, _ := raw.(map[string]interface{})
			if output == nil {
				output = map[string]interface{}{}
			}
			result.Output = output
			if dt, ok := tool.(internal_type.DirectiveTool); ok {
				result.Directive = dt.Directive()
			}
		}
		d.deliver(result)
	})
}

// PendingCount reports how many call_ids are mid-stream.
func (d *Dispatcher) PendingCount() int {
	return len(d.pending)
}

func (d *Dispatcher) ensurePending(callID string) *PendingToolCall {
	p, ok := d.pending[callID]
	if !ok {
		p = &PendingToolCall{CallID: callID}
		d.pending[callID] = p
	}
	return p
}

func (d *Dispatcher) deliver(r Result) {
	select {
	case d.results <- r:
	case <-d.done:
	}
}
