package bookline

import (
	"reflect"
	"testing"
)

func TestTranscriptCodec(t *testing.T) {
	batch := []*Message{
		UserMessage("hello"),
		AssistantMessage("hi, how can I help?"),
	}
	row, err := EncodeMessages(batch)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	decoded, err := DecodeMessages(row)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !reflect.DeepEqual(batch, decoded) {
		t.Fatalf("round trip mismatch: %v != %v", batch, decoded)
	}
}

func TestDecodeHistoryConcatenatesRowsInOrder(t *testing.T) {
	row1, _ := EncodeMessages([]*Message{UserMessage("one")})
	row2, _ := EncodeMessages([]*Message{
		AssistantMessage("two"),
		UserMessage("three"),
	})
	history, err := DecodeHistory([][]byte{row1, row2})
	if err != nil {
		t.Fatalf("decode history error: %v", err)
	}
	var contents []string
	for _, m := range history {
		contents = append(contents, m.Content)
	}
	if !reflect.DeepEqual(contents, []string{"one", "two", "three"}) {
		t.Fatalf("unexpected history order: %v", contents)
	}
}

func TestDecodeHistoryToolCalls(t *testing.T) {
	call := &ToolCall{ID: "t1", Name: "lookup", Arguments: `{"q":"x"}`}
	row, _ := EncodeMessages([]*Message{
		{Role: RoleAssistant, ToolCalls: []*ToolCall{call}, Status: StatusCompleted},
		ToolResultMessage(&ToolCall{ID: "t1", Name: "lookup", Result: "found"}),
	})
	history, err := DecodeHistory([][]byte{row})
	if err != nil {
		t.Fatalf("decode history error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].ToolCalls[0].Name != "lookup" || history[1].ToolCalls[0].Result != "found" {
		t.Fatalf("tool calls not preserved: %+v", history)
	}
}
