package progress

import "testing"

func TestGuard(t *testing.T) {
	t.Run("Begin mints monotonic tokens", func(t *testing.T) {
		g := &Guard{}
		first := g.Begin()
		second := g.Begin()

		if second <= first {
			t.Errorf("expected token %d > %d", second, first)
		}
	})

	t.Run("zero means no operation started", func(t *testing.T) {
		g := &Guard{}
		if g.Current() != 0 {
			t.Errorf("expected current 0, got %d", g.Current())
		}
	})

	t.Run("Valid accepts only the latest token", func(t *testing.T) {
		g := &Guard{}
		old := g.Begin()
		if !g.Valid(old) {
			t.Error("expected the active token to be valid")
		}

		fresh := g.Begin()
		if g.Valid(old) {
			t.Error("expected a superseded token to be invalid")
		}
		if !g.Valid(fresh) {
			t.Error("expected the fresh token to be valid")
		}
	})
}

func TestStageTable(t *testing.T) {
	table := DefaultStages()

	t.Run("resolves bare labels", func(t *testing.T) {
		kind, detail := table.Resolve("generate")
		if kind != KindGeneration {
			t.Errorf("expected KindGeneration, got %v", kind)
		}
		if detail != "" {
			t.Errorf("expected empty detail, got %q", detail)
		}
	})

	t.Run("splits detail suffix", func(t *testing.T) {
		kind, detail := table.Resolve("install:stems")
		if kind != KindInstall {
			t.Errorf("expected KindInstall, got %v", kind)
		}
		if detail != "stems" {
			t.Errorf("expected detail %q, got %q", "stems", detail)
		}
	})

	t.Run("unrecognized labels resolve to unknown", func(t *testing.T) {
		kind, _ := table.Resolve("transcode")
		if kind != KindUnknown {
			t.Errorf("expected KindUnknown, got %v", kind)
		}
	})

	t.Run("render aliases generation", func(t *testing.T) {
		kind, _ := table.Resolve("render")
		if kind != KindGeneration {
			t.Errorf("expected KindGeneration, got %v", kind)
		}
	})
}
