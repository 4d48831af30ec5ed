package formats

import "testing"

func TestNormalizeCellStripsInvisibleCharacters(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"\uFEFFGross Sales", "Gross Sales"},
		{"​Cash​", "Cash"},
		{"  1,471.74  ", "1,471.74"},
		{"  plain  ", "plain"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeCell(c.in); got != c.want {
			t.Fatalf("normalizeCell(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	doc, err := ParseUpload("daily.csv", "team-1", []byte("Gross Sales,1000\nOrders,40,extra\nshort\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(doc.Rows))
	}
	if doc.Rows[0][1] != "1000" {
		t.Fatalf("cell = %q", doc.Rows[0][1])
	}
}
