package codec

import (
	"reflect"
	"testing"
)

func TestFeedSplitsAcrossReads(t *testing.T) {
	c := NewLineCodec()

	got := c.Feed([]byte("FILE:a.txt:1:"))
	if len(got) != 0 {
		t.Fatalf("expected no complete lines yet, got %v", got)
	}

	got = c.Feed([]byte("10\r\nACK:0\r\n"))
	want := []string{"FILE:a.txt:1:10", "ACK:0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Feed() = %v, want %v", got, want)
	}
}

func TestFeedDropsBootLineAndBlankLines(t *testing.T) {
	c := NewLineCodec()
	got := c.Feed([]byte("Power on\r\n\r\n   \r\nhello\r\n"))
	want := []string{"hello"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Feed() = %v, want %v", got, want)
	}
}

func TestFeedTrimsCRAndWhitespace(t *testing.T) {
	c := NewLineCodec()
	got := c.Feed([]byte("  ACK:1  \r\n"))
	want := []string{"ACK:1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Feed() = %v, want %v", got, want)
	}
}
