package surrogate

import (
	"context"
	"maps"
	"time"
)

// StaticStub answers every run with the same output map, stamped with the
// run time and the input keys it saw.
type StaticStub struct {
	output map[string]any
	now    func() time.Time
}

// NewStaticStub returns a stub answering with output, or with a
// {"result":"stub"} placeholder when output is empty.
func NewStaticStub(output map[string]any) *StaticStub {
	if len(output) == 0 {
		output = map[string]any{"result": "stub", "timestamp": "placeholder"}
	}
	return &StaticStub{output: maps.Clone(output), now: time.Now}
}

// Run implements Surrogate.
func (s *StaticStub) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := maps.Clone(s.output)
	out["execution_time"] = s.now().UTC().Format(time.RFC3339)
	out["inputs_received"] = inputKeys(inputs)
	return out, nil
}

// Info implements Surrogate.
func (s *StaticStub) Info() Info {
	return Info{Type: "StaticStubSurrogate", Description: "Returns fixed output data"}
}
