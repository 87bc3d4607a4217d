package stream

import (
	"reflect"
	"strconv"
	"testing"
)

func TestMap(t *testing.T) {
	got, err := ToSlice(Map(FromValues(1, 2, 3), strconv.Itoa))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}

func TestTap(t *testing.T) {
	type msg struct {
		Type string
	}

	var tapped []msg
	got, _ := ToSlice(Tap(FromValues(msg{"a"}, msg{}, msg{"b"}), func(m msg) {
		tapped = append(tapped, m)
	}))

	if !reflect.DeepEqual(got, []msg{{"a"}, {}, {"b"}}) {
		t.Errorf("tap must not alter the stream, got %v", got)
	}
	if !reflect.DeepEqual(tapped, []msg{{"a"}, {"b"}}) {
		t.Errorf("expected zero value to be skipped, got %v", tapped)
	}
}

func TestTap_NilMap(t *testing.T) {
	calls := 0
	var nilMap map[string]any
	_, _ = ToSlice(Tap(FromValues(nilMap, map[string]any{"k": 1}), func(map[string]any) {
		calls++
	}))
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestMute(t *testing.T) {
	requests := 0
	ended := false
	src := func(sink Sink[int]) {
		sink.Start(TalkbackFuncs{OnRequest: func() { requests++ }})
		sink.Next(1)
		sink.Next(2)
		sink.End(nil)
	}

	var got []int
	Mute(Source[int](src))(SinkFuncs[int]{
		OnNext: func(v int) { got = append(got, v) },
		OnEnd:  func(error) { ended = true },
	})

	if len(got) != 0 {
		t.Errorf("expected no data, got %v", got)
	}
	if requests != 2 {
		t.Errorf("expected 2 acknowledgements, got %d", requests)
	}
	if !ended {
		t.Error("expected end to pass through")
	}
}
