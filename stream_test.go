package bookline

import (
	"errors"
	"testing"
)

func TestStreamPipeDeliversInOrder(t *testing.T) {
	pipe := NewStreamPipe[int]()
	pipe.Go(func() error {
		for i := 1; i <= 3; i++ {
			pipe.Send(i)
		}
		return nil
	})
	var got []int
	for pipe.Next() {
		v, _ := pipe.Current()
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected values: %v", got)
	}
	if _, err := pipe.Current(); err != nil {
		t.Fatalf("unexpected terminal error: %v", err)
	}
}

func TestStreamPipeSurfacesProducerError(t *testing.T) {
	boom := errors.New("boom")
	pipe := NewStreamPipe[string]()
	pipe.Go(func() error {
		pipe.Send("partial")
		return boom
	})
	for pipe.Next() {
	}
	if _, err := pipe.Current(); !errors.Is(err, boom) {
		t.Fatalf("expected producer error, got %v", err)
	}
}

func TestStreamPipeCloseIsIdempotent(t *testing.T) {
	pipe := NewStreamPipe[int]()
	if err := pipe.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}
	if err := pipe.Close(); err != nil {
		t.Fatalf("second close error: %v", err)
	}
	if pipe.Next() {
		t.Fatal("closed pipe should not yield")
	}
}

func TestGeneratorStopsProducerOnBreak(t *testing.T) {
	produced := 0
	gen := Generator[int, error](func(yield func(int, error) bool) {
		for i := 0; i < 100; i++ {
			produced++
			if !yield(i, nil) {
				return
			}
		}
	})
	for v, err := range gen {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v == 2 {
			break
		}
	}
	if produced != 3 {
		t.Fatalf("producer kept running after break: %d", produced)
	}
}
