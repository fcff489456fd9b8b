package parser

import "testing"

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		pageCount int
		threshold int
		want      MergeAction
	}{
		{"one page under threshold", 1, 5, Reconcile},
		{"exactly at threshold", 5, 5, Reconcile},
		{"one over threshold", 6, 5, DirectPassthrough},
		{"long document", 40, 5, DirectPassthrough},
		{"zero threshold routes everything long", 1, 0, DirectPassthrough},
		{"huge threshold routes everything short", 500, 1000, Reconcile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.pageCount, tt.threshold)
			if d.Action != tt.want {
				t.Errorf("Decide(%d, %d).Action = %q, want %q", tt.pageCount, tt.threshold, d.Action, tt.want)
			}
			if d.PageCount != tt.pageCount || d.Threshold != tt.threshold {
				t.Errorf("decision did not carry its inputs: %+v", d)
			}
		})
	}
}
