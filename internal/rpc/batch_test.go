package rpc_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc/mock"
)

func TestExecuteBatchPreservesOrder(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	caller.SetResult("list_characters", []any{map[string]any{"id": "ch-1"}})
	caller.SetResult("get_world_state", map[string]any{"id": "w-1"})
	caller.SetResult("get_quest_log", map[string]any{"quests": []any{}})

	calls := []rpc.Call{
		{Name: "list_characters"},
		{Name: "get_world_state"},
		{Name: "get_quest_log", Args: map[string]any{"character_id": "ch-1"}},
	}

	results := rpc.ExecuteBatch(context.Background(), caller, calls)
	if len(results) != len(calls) {
		t.Fatalf("ExecuteBatch: expected %d results, got %d", len(calls), len(results))
	}
	for i, r := range results {
		if r.Name != calls[i].Name {
			t.Errorf("result %d: expected name %q, got %q", i, calls[i].Name, r.Name)
		}
		if !r.OK() {
			t.Errorf("result %d: unexpected error %q", i, r.Err)
		}
		if r.Duration < 0 {
			t.Errorf("result %d: negative duration %v", i, r.Duration)
		}
	}
	if got := results[2].Args; !reflect.DeepEqual(got, calls[2].Args) {
		t.Errorf("result 2: expected args carried through, got %v", got)
	}
	if got := results[1].Result; !reflect.DeepEqual(got, map[string]any{"id": "w-1"}) {
		t.Errorf("result 1: unexpected payload %v", got)
	}
}

func TestExecuteBatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	caller.SetResult("list_characters", []any{map[string]any{"id": "ch-1"}})
	caller.SetError("get_world_state", errors.New("connection reset"))
	caller.SetResult("get_quest_log", map[string]any{"quests": []any{}})

	results := rpc.ExecuteBatch(context.Background(), caller, []rpc.Call{
		{Name: "list_characters"},
		{Name: "get_world_state"},
		{Name: "get_quest_log"},
	})

	if !results[0].OK() || !results[2].OK() {
		t.Fatalf("expected surrounding calls to succeed, got %q / %q", results[0].Err, results[2].Err)
	}
	if results[1].OK() {
		t.Fatal("expected get_world_state to fail")
	}
	if results[1].Err != "connection reset" {
		t.Errorf("expected error message preserved, got %q", results[1].Err)
	}
	if results[1].Result != nil {
		t.Errorf("failed call must carry a nil result, got %v", results[1].Result)
	}

	for _, name := range []string{"list_characters", "get_world_state", "get_quest_log"} {
		if got := caller.CallCount(name); got != 1 {
			t.Errorf("expected exactly one %s call, got %d", name, got)
		}
	}
}

func TestExecuteBatchEmpty(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	results := rpc.ExecuteBatch(context.Background(), caller, nil)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if got := len(caller.Calls()); got != 0 {
		t.Fatalf("expected no remote calls, got %d", got)
	}
}
