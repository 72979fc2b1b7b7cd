package decl

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuiltins(t *testing.T) {
	idx := NewIndex()

	tests := []struct {
		name   string
		kind   Kind
		size   int64
		signed bool
	}{
		{"u8", Int, 1, false},
		{"s8", Int, 1, true},
		{"u16", Int, 2, false},
		{"s16", Int, 2, true},
		{"u32", Int, 4, false},
		{"s32", Int, 4, true},
		{"u64", Int, 8, false},
		{"s64", Int, 8, true},
		{"f32", Float, 4, false},
		{"f64", Float, 8, false},
		{"void", Void, 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := idx.LookupType(tc.name)
			if err != nil {
				t.Fatal(err)
			}
			if d.Kind != tc.kind || d.Size != tc.size || d.Signed != tc.signed {
				t.Errorf("%s = {%v %d signed=%v}, want {%v %d signed=%v}",
					tc.name, d.Kind, d.Size, d.Signed, tc.kind, tc.size, tc.signed)
			}
		})
	}

	aliases := []struct{ name, of string }{
		{"bool8", "u8"},
		{"char", "s8"},
		{"uchar", "u8"},
	}
	for _, tc := range aliases {
		d, err := idx.LookupType(tc.name)
		if err != nil {
			t.Fatal(err)
		}
		if d.Kind != Alias {
			t.Fatalf("%s is %v, want alias", tc.name, d.Kind)
		}
		want, err := idx.LookupType(tc.of)
		if err != nil {
			t.Fatal(err)
		}
		if Resolve(d) != want {
			t.Errorf("%s does not resolve to %s", tc.name, tc.of)
		}
	}
}

func TestLookupTypeNotFound(t *testing.T) {
	idx := NewIndex()
	_, err := idx.LookupType("NPCEntry")
	var tnf *TypeNotFoundError
	if !errors.As(err, &tnf) {
		t.Fatalf("err = %v (%T), want *TypeNotFoundError", err, err)
	}
	if tnf.Name != "NPCEntry" {
		t.Errorf("err.Name = %q", tnf.Name)
	}
	if _, err := idx.LookupGlobal("gNPCWork"); !errors.As(err, &tnf) {
		t.Errorf("global err = %v (%T), want *TypeNotFoundError", err, err)
	}
}

func TestDefineTypeCompletesPlaceholder(t *testing.T) {
	idx := NewIndex()
	ref := idx.refType("Node")
	if ref.Kind != Incomplete {
		t.Fatalf("placeholder kind = %v", ref.Kind)
	}

	def := &Desc{Kind: Struct, Size: 8, Fields: []Field{{Name: "value", Offset: 0, Type: idx.refType("u32")}}}
	got, err := idx.DefineType("Node", def)
	if err != nil {
		t.Fatal(err)
	}
	if got != ref {
		t.Errorf("completed descriptor is a different object than the placeholder")
	}
	if ref.Kind != Struct || ref.Size != 8 || ref.Name != "Node" {
		t.Errorf("placeholder after completion = {%v %d %q}", ref.Kind, ref.Size, ref.Name)
	}
}

func TestDefineTypeRedefinition(t *testing.T) {
	idx := NewIndex()
	if _, err := idx.DefineType("u8", &Desc{Kind: Int, Size: 1}); err == nil {
		t.Errorf("redefining a builtin succeeded")
	}
	if _, err := idx.DefineType("Vec3", &Desc{Kind: Struct, Size: 12}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.DefineType("Vec3", &Desc{Kind: Struct, Size: 12}); err == nil {
		t.Errorf("redefining Vec3 succeeded")
	}
}

func TestResolve(t *testing.T) {
	base := &Desc{Kind: Int, Size: 4}
	a := &Desc{Kind: Alias, Name: "a", Elem: base}
	b := &Desc{Kind: Alias, Name: "b", Elem: a}
	if Resolve(b) != base {
		t.Errorf("alias chain did not resolve to the base descriptor")
	}
	if Resolve(base) != base {
		t.Errorf("non-alias did not resolve to itself")
	}

	cycle := &Desc{Kind: Alias, Name: "c"}
	cycle.Elem = cycle
	if Resolve(cycle) != nil {
		t.Errorf("typedef cycle resolved to a descriptor")
	}
}

func TestNamePrefixSearch(t *testing.T) {
	idx := NewIndex()
	for _, name := range []string{"NPCEntry", "NPCWork", "MapWork"} {
		if _, err := idx.DefineType(name, &Desc{Kind: Struct, Size: 4}); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.DefineGlobal("gNPCWork", Global{Type: idx.refType("NPCWork"), Addr: 0x80400000}); err != nil {
		t.Fatal(err)
	}
	if err := idx.DefineGlobal("gMapWork", Global{Type: idx.refType("MapWork"), Addr: 0x80400100}); err != nil {
		t.Fatal(err)
	}

	if got, want := idx.TypeNames("NPC"), []string{"NPCEntry", "NPCWork"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TypeNames(\"NPC\") = %v, want %v", got, want)
	}
	if got := idx.TypeNames("s"); !reflect.DeepEqual(got, []string{"s16", "s32", "s64", "s8"}) {
		t.Errorf("TypeNames(\"s\") = %v", got)
	}
	if got, want := idx.GlobalNames("g"), []string{"gMapWork", "gNPCWork"}; !reflect.DeepEqual(got, want) {
		t.Errorf("GlobalNames(\"g\") = %v, want %v", got, want)
	}
	if got := idx.GlobalNames("x"); len(got) != 0 {
		t.Errorf("GlobalNames(\"x\") = %v, want none", got)
	}
}

func TestTypeNamesSkipUndefined(t *testing.T) {
	// A referenced-but-undefined name resolves to its placeholder but
	// must not show up in completion listings until a context defines
	// it: a listed name should always be one FindType can construct.
	idx := loadIndex(t, "typedefs:\n  SeqHandle: {kind: ptr, to: SeqWork}\n")

	if got, want := idx.TypeNames("Seq"), []string{"SeqHandle"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TypeNames(\"Seq\") = %v, want %v", got, want)
	}
	if d, err := idx.LookupType("SeqWork"); err != nil || d.Kind != Incomplete {
		t.Errorf("placeholder lookup = (%v, %v), want the Incomplete descriptor", d, err)
	}

	second := `
types:
  SeqWork:
    kind: struct
    size: 4
    fields:
      - {name: state, type: u32, offset: 0}
`
	if err := idx.Load([]byte(second)); err != nil {
		t.Fatal(err)
	}
	if got, want := idx.TypeNames("Seq"), []string{"SeqHandle", "SeqWork"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TypeNames(\"Seq\") after completion = %v, want %v", got, want)
	}
}
