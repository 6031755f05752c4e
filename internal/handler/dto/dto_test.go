package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/notebook/notebook/internal/model"
)

func TestNewestNoteResponse_NullWhenMissing(t *testing.T) {
	tests := []struct {
		name string
		resp NewestNoteResponse
		want string
	}{
		{"missing", NewestNoteResponse{}, `{"newestNoteId":null}`},
		{"present", NewestNoteResponse{NewestNoteID: ptr("n1")}, `{"newestNoteId":"n1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestActionResponse(t *testing.T) {
	ok, _ := json.Marshal(ActionOK())
	if string(ok) != `{"errorMessage":null}` {
		t.Errorf("ActionOK = %s", ok)
	}

	failed, _ := json.Marshal(ActionFailed("nope"))
	if string(failed) != `{"errorMessage":"nope"}` {
		t.Errorf("ActionFailed = %s", failed)
	}
}

func TestToNoteListResponse_Empty(t *testing.T) {
	b, _ := json.Marshal(ToNoteListResponse(nil))
	if string(b) != `{"notes":[]}` {
		t.Errorf("got %s, want empty list", b)
	}
}

func TestToNoteResponse(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	resp := ToNoteResponse(&model.Note{ID: "n1", Text: "first line\nsecond", CreatedAt: now, UpdatedAt: now})

	if resp.Preview != "first line" {
		t.Errorf("Preview = %q", resp.Preview)
	}
	if resp.ID != "n1" || !resp.UpdatedAt.Equal(now) {
		t.Errorf("unexpected response %+v", resp)
	}
}

func ptr(s string) *string { return &s }
