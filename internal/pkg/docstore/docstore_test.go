package docstore

import (
	"testing"
	"time"
)

func TestResolveFieldsServerTimestamp(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	dst := map[string]interface{}{}

	ResolveFields(dst, map[string]interface{}{"criacao": ServerTimestamp}, now)

	got, ok := AsTime(dst["criacao"])
	if !ok {
		t.Fatalf("criacao not resolved to a time: %#v", dst["criacao"])
	}
	if !got.Equal(now) {
		t.Errorf("criacao = %v, want %v", got, now)
	}
}

func TestResolveFieldsArrayUnion(t *testing.T) {
	tests := []struct {
		name    string
		initial []interface{}
		add     []interface{}
		want    int
	}{
		{"append to empty", nil, []interface{}{"a"}, 1},
		{"append new", []interface{}{"a"}, []interface{}{"b"}, 2},
		{"skip duplicate", []interface{}{"a"}, []interface{}{"a"}, 1},
		{"mixed", []interface{}{"a", "b"}, []interface{}{"b", "c"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := map[string]interface{}{}
			if tt.initial != nil {
				dst["seguindo"] = tt.initial
			}
			ResolveFields(dst, map[string]interface{}{"seguindo": ArrayUnion(tt.add...)}, time.Now())
			arr, ok := dst["seguindo"].([]interface{})
			if !ok {
				t.Fatalf("seguindo is not an array: %#v", dst["seguindo"])
			}
			if len(arr) != tt.want {
				t.Errorf("len = %d, want %d (%v)", len(arr), tt.want, arr)
			}
		})
	}
}

func TestResolveFieldsArrayRemove(t *testing.T) {
	dst := map[string]interface{}{"seguidores": []interface{}{"a", "b", "c"}}
	ResolveFields(dst, map[string]interface{}{"seguidores": ArrayRemove("b", "x")}, time.Now())

	arr := dst["seguidores"].([]interface{})
	if len(arr) != 2 || arr[0] != "a" || arr[1] != "c" {
		t.Errorf("seguidores = %v, want [a c]", arr)
	}
}

func TestResolveFieldsArrayRemoveOfMaps(t *testing.T) {
	entry := map[string]interface{}{"uid": "u1", "nome": "Ana"}
	other := map[string]interface{}{"uid": "u2", "nome": "Bia"}
	dst := map[string]interface{}{"alunos": []interface{}{entry, other}}

	ResolveFields(dst, map[string]interface{}{
		"alunos": ArrayRemove(map[string]interface{}{"uid": "u1", "nome": "Ana"}),
	}, time.Now())

	arr := dst["alunos"].([]interface{})
	if len(arr) != 1 {
		t.Fatalf("alunos = %v, want one entry", arr)
	}
	if arr[0].(map[string]interface{})["uid"] != "u2" {
		t.Errorf("wrong entry removed: %v", arr)
	}
}

func TestWhereMatches(t *testing.T) {
	fields := map[string]interface{}{
		"nome":      "Maria",
		"lida":      false,
		"alunosIds": []interface{}{"u1", "u2"},
	}

	tests := []struct {
		name  string
		where Where
		want  bool
	}{
		{"equal hit", Where{Field: "nome", Op: OpEqual, Value: "Maria"}, true},
		{"equal miss", Where{Field: "nome", Op: OpEqual, Value: "Ana"}, false},
		{"bool equal", Where{Field: "lida", Op: OpEqual, Value: false}, true},
		{"gte hit", Where{Field: "nome", Op: OpGreaterEqual, Value: "Mar"}, true},
		{"gte miss", Where{Field: "nome", Op: OpGreaterEqual, Value: "N"}, false},
		{"lte sentinel", Where{Field: "nome", Op: OpLessEqual, Value: "Mar" + PrefixSentinel}, true},
		{"contains hit", Where{Field: "alunosIds", Op: OpArrayContains, Value: "u2"}, true},
		{"contains miss", Where{Field: "alunosIds", Op: OpArrayContains, Value: "u3"}, false},
		{"missing field", Where{Field: "absent", Op: OpEqual, Value: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.where.Matches(fields); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompareValuesTimes(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	if CompareValues(early, late) >= 0 {
		t.Error("expected early < late")
	}
	// RFC3339 strings and time values must order consistently.
	if CompareValues(early.Format(time.RFC3339Nano), late.Format(time.RFC3339Nano)) >= 0 {
		t.Error("expected early string < late string")
	}
}

func TestSubscriptionCancelIsIdempotent(t *testing.T) {
	snapshots := make(chan []Document, 1)
	cancelled := 0
	sub := NewSubscription(snapshots, func() {
		cancelled++
		close(snapshots)
	})

	sub.Cancel()
	sub.Cancel()
	sub.Cancel()

	if cancelled != 1 {
		t.Errorf("cancel ran %d times, want 1", cancelled)
	}
	if _, open := <-sub.Snapshots(); open {
		t.Error("snapshot channel still open after cancel")
	}
}
