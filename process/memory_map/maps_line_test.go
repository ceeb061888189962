package memory_map

import "testing"

func TestParseMapsLine(t *testing.T) {
	item, ok := ParseMapsLine("140000000-140001000 r--p 00000000 08:01 1234   /games/target dir/Game.exe")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Address != 0x140000000 || item.Size != 0x1000 {
		t.Fatalf("unexpected range 0x%x/%d", item.Address, item.Size)
	}
	if item.Path != "/games/target dir/Game.exe" {
		t.Fatalf("unexpected path %q", item.Path)
	}
	if !item.IsReadable() || item.IsWritable() || item.IsExecutable() {
		t.Fatalf("unexpected perms %s", item.Perms)
	}

	if _, ok := ParseMapsLine("garbage"); ok {
		t.Fatal("expected garbage to be rejected")
	}
}

func TestFindImageBase(t *testing.T) {
	mm := []MemoryMapItem{
		{Address: 0x7f0000000000, Size: 0x1000, Perms: "r--p", Path: "/lib/libc.so"},
		{Address: 0x140001000, Size: 0x5000, Perms: "r-xp", Offset: 0x1000, Path: "/games/Game.exe"},
		{Address: 0x140000000, Size: 0x1000, Perms: "r--p", Path: "/games/Game.exe"},
	}

	base, err := FindImageBase("/games/Game.exe", mm)
	if err != nil {
		t.Fatal(err)
	}
	if base != 0x140000000 {
		t.Fatalf("expected 0x140000000 - got 0x%x", base)
	}

	if _, err := FindImageBase("/missing", mm); err == nil {
		t.Fatal("expected error for unmapped image")
	}
}

func TestContainsRange(t *testing.T) {
	mm := []MemoryMapItem{
		{Address: 0x1000, Size: 0x1000, Perms: "r--p"},
		{Address: 0x2000, Size: 0x1000, Perms: "r-xp"},
		{Address: 0x4000, Size: 0x1000, Perms: "r--p"},
	}
	Sort(mm)

	if !ContainsRange(0x1800, 0x1000, mm) {
		t.Fatal("expected contiguous range to be contained")
	}
	if ContainsRange(0x2800, 0x1000, mm) {
		t.Fatal("expected range spanning a hole to be rejected")
	}
	if IsValidAddress2(0x3000, mm) != nil {
		t.Fatal("expected hole to be invalid")
	}
	if r := IsValidAddress2(0x4fff, mm); r == nil || r.Address != 0x4000 {
		t.Fatal("expected last byte of region to be valid")
	}
}

func TestFilters(t *testing.T) {
	cases := []struct {
		perms      string
		readable   bool
		executable bool
	}{
		{"r--p", true, false},
		{"r-xp", true, true},
		{"--xp", false, false},
		{"rw-s", true, false},
		{"", false, false},
	}
	for _, c := range cases {
		item := MemoryMapItem{Perms: c.perms}
		if Readable(item) != c.readable || Executable(item) != c.executable {
			t.Fatalf("%q: expected readable=%v executable=%v", c.perms, c.readable, c.executable)
		}
	}
}
