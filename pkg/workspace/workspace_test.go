package workspace

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-remora/remora/pkg/config"
	"github.com/go-remora/remora/pkg/overlay"
)

const testContext = `
types:
  SaveSlot:
    kind: struct
    size: 16
    fields:
      - {name: coins, type: u32, offset: 0}
      - {name: hp, type: s16, offset: 4}
      - {name: label, type: {kind: array, of: char, count: 8}, offset: 8}
globals:
  gSlot: {type: SaveSlot, addr: 0x1000}
  gLabelPtr: {type: {kind: ptr, to: char}, addr: 0x1010}
`

// newWorkspaceDir lays out a RAM dump, a context and a workspace file
// referencing both by relative path.
func newWorkspaceDir(t *testing.T, extra string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "workspace-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	if err := ioutil.WriteFile(filepath.Join(dir, "ram.bin"), make([]byte, 256), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, "ctx.yml"), []byte(testContext), 0644); err != nil {
		t.Fatal(err)
	}
	ws := `
contexts:
  - ctx.yml
images:
  - {path: ram.bin, base: 0x1000}
` + extra
	if err := ioutil.WriteFile(filepath.Join(dir, "workspace.yml"), []byte(ws), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func openDir(t *testing.T, dir string) *Workspace {
	t.Helper()
	w, err := OpenFile(filepath.Join(dir, "workspace.yml"))
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func slotField(t *testing.T, w *Workspace, name string) overlay.View {
	t.Helper()
	slot, err := w.Global("gSlot")
	if err != nil {
		t.Fatal(err)
	}
	f, err := slot.(*overlay.StructView).Field(name)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func fillString(t *testing.T, v overlay.View, s string) {
	t.Helper()
	av := v.(*overlay.ArrayView)
	for i := 0; i < len(s)+1; i++ {
		ev, err := av.Index(int64(i))
		if err != nil {
			t.Fatal(err)
		}
		var b int64
		if i < len(s) {
			b = int64(s[i])
		}
		if err := ev.(*overlay.IntView).SetValue(b); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOpenSaveReopen(t *testing.T) {
	dir := newWorkspaceDir(t, "")

	w := openDir(t, dir)
	if err := slotField(t, w, "coins").(*overlay.IntView).SetUint(30); err != nil {
		t.Fatal(err)
	}
	if err := slotField(t, w, "hp").(*overlay.IntView).SetValue(-5); err != nil {
		t.Fatal(err)
	}
	fillString(t, slotField(t, w, "label"), "file1")
	if err := w.Save(); err != nil {
		t.Fatal(err)
	}

	// A fresh workspace over the saved dump sees the edits.
	w2 := openDir(t, dir)
	if got, _ := slotField(t, w2, "coins").(*overlay.IntView).Uint(); got != 30 {
		t.Errorf("coins after reopen = %d, want 30", got)
	}
	if got, _ := slotField(t, w2, "hp").(*overlay.IntView).Value(); got != -5 {
		t.Errorf("hp after reopen = %d, want -5", got)
	}
	got, err := w2.CString(slotField(t, w2, "label"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "file1" {
		t.Errorf("label after reopen = %q, want file1", got)
	}
}

func TestOpenCached(t *testing.T) {
	dir := newWorkspaceDir(t, "cache-pages: 2\n")

	w := openDir(t, dir)
	coins := slotField(t, w, "coins").(*overlay.IntView)
	if err := coins.SetUint(99); err != nil {
		t.Fatal(err)
	}
	if got, _ := coins.Uint(); got != 99 {
		t.Errorf("coins through cache = %d, want 99", got)
	}
	if err := w.Save(); err != nil {
		t.Fatal(err)
	}

	w2 := openDir(t, dir)
	if got, _ := slotField(t, w2, "coins").(*overlay.IntView).Uint(); got != 99 {
		t.Errorf("cached write did not reach the dump, coins = %d", got)
	}
}

func TestCStringThroughPointer(t *testing.T) {
	dir := newWorkspaceDir(t, "")
	w := openDir(t, dir)

	fillString(t, slotField(t, w, "label"), "mario")
	ptr, err := w.Global("gLabelPtr")
	if err != nil {
		t.Fatal(err)
	}
	// Point at the label array inside the slot.
	if err := ptr.(*overlay.PtrView).SetValue(0x1008); err != nil {
		t.Fatal(err)
	}
	got, err := w.CString(ptr)
	if err != nil {
		t.Fatal(err)
	}
	if got != "mario" {
		t.Errorf("CString through pointer = %q, want mario", got)
	}

	// Views that do not hold string data are rejected.
	if _, err := w.CString(slotField(t, w, "coins")); err == nil {
		t.Errorf("CString over a u32 succeeded")
	}
}

func TestMaxCStringLen(t *testing.T) {
	dir := newWorkspaceDir(t, "max-cstring-len: 4\n")
	w := openDir(t, dir)

	fillString(t, slotField(t, w, "label"), "toolong")
	ptr, err := w.Global("gLabelPtr")
	if err != nil {
		t.Fatal(err)
	}
	if err := ptr.(*overlay.PtrView).SetValue(0x1008); err != nil {
		t.Fatal(err)
	}
	if _, err := w.CString(ptr); err == nil {
		t.Errorf("pointer string longer than max-cstring-len succeeded")
	}
	// The array form is bounded by its declared length instead.
	if got, _ := w.CString(slotField(t, w, "label")); got != "toolong" {
		t.Errorf("array string = %q, want toolong", got)
	}
}

func TestOpenMissingContext(t *testing.T) {
	dir := newWorkspaceDir(t, "")
	ws := `
contexts:
  - missing.yml
images:
  - {path: ram.bin, base: 0x1000}
`
	if err := ioutil.WriteFile(filepath.Join(dir, "workspace.yml"), []byte(ws), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(filepath.Join(dir, "workspace.yml")); err == nil {
		t.Errorf("open with a missing context succeeded")
	}
}

func TestOpenInvalidConfig(t *testing.T) {
	cfg := &config.Config{PtrSize: 3, ByteOrder: "big"}
	if _, err := Open(cfg); err == nil {
		t.Errorf("open accepted pointer size 3")
	}
}

func TestSaveNotFileBacked(t *testing.T) {
	w := &Workspace{}
	if err := w.Save(); !errors.Is(err, ErrNotFileBacked) {
		t.Errorf("Save() = %v, want ErrNotFileBacked", err)
	}
}
