package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type read struct {
	text string
	ok   bool
}

func observeAll(d *Debouncer, reads []read) []string {
	var accepted []string
	for _, r := range reads {
		if text, ok := d.Observe(r.text, r.ok); ok {
			accepted = append(accepted, text)
		}
	}
	return accepted
}

func TestDebouncer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		threshold int
		reads     []read
		want      []string
	}{
		{"two identical reads", 2, []read{{"A", true}, {"A", true}}, []string{"A"}},
		{"single read then different", 2, []read{{"A", true}, {"B", true}}, nil},
		{"read then miss then read", 2, []read{{"A", true}, {"", false}, {"A", true}}, nil},
		{"flapping never settles", 2, []read{{"A", true}, {"B", true}, {"A", true}, {"B", true}}, nil},
		{"held steady accepted once", 2, []read{{"A", true}, {"A", true}, {"A", true}, {"A", true}}, []string{"A"}},
		{"accepted again after a miss", 2, []read{{"A", true}, {"A", true}, {"", false}, {"A", true}, {"A", true}}, []string{"A", "A"}},
		{"switch to new code", 2, []read{{"A", true}, {"A", true}, {"B", true}, {"B", true}}, []string{"A", "B"}},
		{"threshold three", 3, []read{{"A", true}, {"A", true}, {"B", true}, {"B", true}, {"B", true}}, []string{"B"}},
		{"threshold one", 1, []read{{"A", true}, {"B", true}}, []string{"A", "B"}},
		{"zero threshold uses default", 0, []read{{"A", true}, {"A", true}}, []string{"A"}},
		{"empty text is a miss", 2, []read{{"A", true}, {"", true}, {"A", true}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Debouncer{Threshold: tc.threshold}
			assert.Equal(t, tc.want, observeAll(d, tc.reads))
		})
	}
}
