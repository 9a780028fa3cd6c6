package sliceutil

import "testing"

func TestDeduplicate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		items []string
		want  []string
	}{
		{
			name:  "No duplicates",
			items: []string{"halo", "hai", "selamat pagi"},
			want:  []string{"halo", "hai", "selamat pagi"},
		},
		{
			name:  "With duplicates - preserve first",
			items: []string{"halo", "hai", "halo", "pagi"},
			want:  []string{"halo", "hai", "pagi"},
		},
		{
			name:  "All duplicates",
			items: []string{"halo", "halo", "halo"},
			want:  []string{"halo"},
		},
		{
			name:  "Empty slice",
			items: []string{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Deduplicate(tt.items, func(s string) string { return s })
			if len(got) != len(tt.want) {
				t.Fatalf("Deduplicate() length = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Deduplicate()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDeduplicatePreservesOrder(t *testing.T) {
	t.Parallel()
	type tagged struct {
		Tag  string
		Text string
	}
	items := []tagged{
		{Tag: "sapa", Text: "halo"},
		{Tag: "pamit", Text: "dadah"},
		{Tag: "sapa", Text: "hai"}, // Duplicate tag
	}

	got := Deduplicate(items, func(i tagged) string { return i.Tag })

	if len(got) != 2 {
		t.Fatalf("Deduplicate() length = %d, want 2", len(got))
	}
	if got[0].Text != "halo" || got[1].Text != "dadah" {
		t.Errorf("Deduplicate() did not keep first occurrences: %v", got)
	}
}
