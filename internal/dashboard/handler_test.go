package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/mendtool/mend/internal/conflict"
	"github.com/mendtool/mend/internal/engine"
)

const sampleConflict = "line1\n" +
	"<<<<<<< HEAD\nours\n=======\ntheirs\n>>>>>>> branch\n" +
	"line2\n"

// newHandler wires a handler to an unstarted server whose broadcast
// channel we can drain directly.
func newHandler(t *testing.T) (*Handler, *Server) {
	t.Helper()

	s := NewServer(Config{Port: 0})
	return NewHandler(s, nil), s
}

func drain(t *testing.T, s *Server) []Message {
	t.Helper()

	var msgs []Message
	for {
		select {
		case m := <-s.broadcast:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestOnScan(t *testing.T) {
	h, s := newHandler(t)

	files := []*conflict.File{
		conflict.NewFile("a.txt", sampleConflict),
		conflict.NewFile("b.txt", sampleConflict+"<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> z\n"),
	}
	h.OnScan(files)

	stats := h.Stats()
	if stats.FilesRemaining != 2 {
		t.Errorf("FilesRemaining = %d, want 2", stats.FilesRemaining)
	}
	if stats.RegionsRemaining != 3 {
		t.Errorf("RegionsRemaining = %d, want 3", stats.RegionsRemaining)
	}
	if stats.FilesResolved != 0 {
		t.Errorf("FilesResolved = %d, want 0", stats.FilesResolved)
	}

	msgs := drain(t, s)
	if len(msgs) != 2 {
		t.Fatalf("got %d broadcasts, want scan + stats", len(msgs))
	}
	if msgs[0].Type != MessageTypeScan || msgs[1].Type != MessageTypeStats {
		t.Errorf("broadcast types = %q, %q", msgs[0].Type, msgs[1].Type)
	}

	var scan ScanData
	if err := json.Unmarshal(msgs[0].Data, &scan); err != nil {
		t.Fatalf("failed to decode scan data: %v", err)
	}
	if scan.Regions != 3 || len(scan.Files) != 2 {
		t.Errorf("scan data = %+v", scan)
	}
}

func TestOnScanCarriesFileErrors(t *testing.T) {
	h, s := newHandler(t)

	h.OnScan([]*conflict.File{
		conflict.NewFile("bad.txt", "<<<<<<< HEAD\ntruncated\n"),
	})

	msgs := drain(t, s)
	var scan ScanData
	if err := json.Unmarshal(msgs[0].Data, &scan); err != nil {
		t.Fatalf("failed to decode scan data: %v", err)
	}
	if scan.Files[0].Error == "" {
		t.Error("malformed file's error missing from snapshot")
	}
}

func TestOnResolutionRegion(t *testing.T) {
	h, s := newHandler(t)

	h.OnScan([]*conflict.File{
		conflict.NewFile("a.txt", sampleConflict),
	})
	drain(t, s)

	// The only region resolved: region event, file event, stats
	updated := conflict.NewFile("a.txt", "line1\nours\nline2\n")
	h.OnResolution(engine.Resolution{
		Path:        "a.txt",
		Method:      engine.MethodAcceptRegion,
		Side:        "ours",
		RegionStart: 2,
		RegionEnd:   6,
	}, updated)

	stats := h.Stats()
	if stats.RegionsRemaining != 0 {
		t.Errorf("RegionsRemaining = %d, want 0", stats.RegionsRemaining)
	}
	if stats.FilesRemaining != 0 {
		t.Errorf("FilesRemaining = %d, want 0", stats.FilesRemaining)
	}
	if stats.FilesResolved != 1 {
		t.Errorf("FilesResolved = %d, want 1", stats.FilesResolved)
	}

	msgs := drain(t, s)
	if len(msgs) != 3 {
		t.Fatalf("got %d broadcasts, want region + file + stats", len(msgs))
	}
	if msgs[0].Type != MessageTypeRegionResolved {
		t.Errorf("msgs[0].Type = %q", msgs[0].Type)
	}
	if msgs[1].Type != MessageTypeFileResolved {
		t.Errorf("msgs[1].Type = %q", msgs[1].Type)
	}

	var region RegionResolvedData
	if err := json.Unmarshal(msgs[0].Data, &region); err != nil {
		t.Fatalf("failed to decode region data: %v", err)
	}
	if region.StartLine != 2 || region.EndLine != 6 || region.Remaining != 0 {
		t.Errorf("region data = %+v", region)
	}
}

func TestOnResolutionPartialFile(t *testing.T) {
	h, s := newHandler(t)

	two := sampleConflict + "<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> z\n"
	h.OnScan([]*conflict.File{conflict.NewFile("a.txt", two)})
	drain(t, s)

	// One of two regions resolved: no file_resolved event yet
	updated := conflict.NewFile("a.txt", "line1\nours\nline2\n<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> z\n")
	h.OnResolution(engine.Resolution{
		Path:        "a.txt",
		Method:      engine.MethodAcceptRegion,
		Side:        "ours",
		RegionStart: 2,
		RegionEnd:   6,
	}, updated)

	stats := h.Stats()
	if stats.RegionsRemaining != 1 {
		t.Errorf("RegionsRemaining = %d, want 1", stats.RegionsRemaining)
	}
	if stats.FilesRemaining != 1 {
		t.Errorf("FilesRemaining = %d, want 1", stats.FilesRemaining)
	}

	msgs := drain(t, s)
	if len(msgs) != 2 {
		t.Fatalf("got %d broadcasts, want region + stats", len(msgs))
	}
	if msgs[0].Type != MessageTypeRegionResolved || msgs[1].Type != MessageTypeStats {
		t.Errorf("broadcast types = %q, %q", msgs[0].Type, msgs[1].Type)
	}
}

func TestOnResolutionWholeFile(t *testing.T) {
	h, s := newHandler(t)

	h.OnScan([]*conflict.File{conflict.NewFile("a.txt", sampleConflict)})
	drain(t, s)

	// Whole-file methods carry no region span
	h.OnResolution(engine.Resolution{
		Path:   "a.txt",
		Method: engine.MethodAcceptOursFile,
	}, conflict.NewFile("a.txt", "resolved\n"))

	msgs := drain(t, s)
	if len(msgs) != 2 {
		t.Fatalf("got %d broadcasts, want file + stats", len(msgs))
	}
	if msgs[0].Type != MessageTypeFileResolved {
		t.Errorf("msgs[0].Type = %q", msgs[0].Type)
	}

	if got := h.Stats(); got.FilesResolved != 1 || got.FilesRemaining != 0 {
		t.Errorf("stats = %+v", got)
	}
}
