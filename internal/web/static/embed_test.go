package static

import (
	"io/fs"
	"testing"
)

func TestDashboard(t *testing.T) {
	dist, ok := Dashboard()
	if !ok {
		t.Fatal("expected the dashboard to be embedded")
	}
	for _, name := range []string{"index.html", "app.js"} {
		if _, err := fs.Stat(dist, name); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
