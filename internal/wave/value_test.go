package wave

import (
	"encoding/json"
	"testing"
)

func TestValueJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{name: "known", in: Known(800), want: "800"},
		{name: "unknown", in: Unknown, want: "null"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tc.want {
				t.Fatalf("marshal = %s, want %s", data, tc.want)
			}
			var back Value
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tc.in {
				t.Fatalf("round trip = %+v, want %+v", back, tc.in)
			}
		})
	}
}

func TestValueEquals(t *testing.T) {
	if Unknown.Equals(0) {
		t.Fatal("indeterminate value must not equal any bits")
	}
	if !Known(5).Equals(5) || Known(5).Equals(6) {
		t.Fatal("known value comparison broken")
	}
}
