package bitvector

import "testing"

func TestSliceAndSetSlice(t *testing.T) {
	bv := NewWidth(0b10110100, 8)

	slice, err := bv.Slice(6, 2)
	if err != nil {
		t.Fatalf("Slice(6,2): %v", err)
	}
	if got := slice.Int64(); got != 0b1101 {
		t.Fatalf("bv[6:2] = %#b, want %#b", got, 0b1101)
	}

	if err := bv.SetSlice(6, 2, 0b0001); err != nil {
		t.Fatalf("SetSlice(6,2,1): %v", err)
	}
	if got := bv.Int64(); got != 0b10000100 {
		t.Fatalf("after bv[6:2]=1: %#b, want %#b", got, 0b10000100)
	}
}

func TestBitLSB0(t *testing.T) {
	bv := NewWidth(0b0000_0110, 8)
	b0, err := bv.Bit(0)
	if err != nil || b0.Int64() != 0 {
		t.Fatalf("bit 0 = %v, %v, want 0", b0, err)
	}
	b1, err := bv.Bit(1)
	if err != nil || b1.Int64() != 1 {
		t.Fatalf("bit 1 = %v, %v, want 1", b1, err)
	}
}

func TestBitOutOfRange(t *testing.T) {
	bv := NewWidth(0, 4)
	if _, err := bv.Bit(-1); err == nil {
		t.Fatal("expected IndexError for negative index")
	}
	if _, err := bv.Bit(4); err == nil {
		t.Fatal("expected IndexError for sized vector beyond width")
	}

	unsized := New(5)
	b, err := unsized.Bit(100)
	if err != nil {
		t.Fatalf("unexpected error for unsized high bit: %v", err)
	}
	if b.Int64() != 0 {
		t.Fatalf("unsized out-of-range high bit = %d, want 0", b.Int64())
	}
}

func TestSliceRequiresIGreaterThanJ(t *testing.T) {
	bv := NewWidth(0, 8)
	if _, err := bv.Slice(2, 2); err == nil {
		t.Fatal("expected IndexError when i == j")
	}
	if _, err := bv.Slice(2, -1); err == nil {
		t.Fatal("expected IndexError when j < 0")
	}
}

func TestBoundedConstructionAndAssignBounds(t *testing.T) {
	bv, err := NewBounded(3, -4, 4)
	if err != nil {
		t.Fatalf("NewBounded: %v", err)
	}
	if bv.Len() != 3 {
		t.Fatalf("width = %d, want 3 (ceil(log2(max(4,3)))+1)", bv.Len())
	}
	if err := bv.AddAssign(10); err == nil {
		t.Fatal("expected ValueOutOfRangeError for out-of-bounds AddAssign")
	}
	if err := bv.AddAssign(-2); err != nil {
		t.Fatalf("in-bounds AddAssign failed: %v", err)
	}
	if bv.Int64() != 1 {
		t.Fatalf("value after AddAssign(-2) = %d, want 1", bv.Int64())
	}
}

func TestSizedWidthRejectsOutOfRange(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic constructing an out-of-range sized literal")
		}
	}()
	NewWidth(256, 8)
}

func TestArithmeticResultsAreUnsized(t *testing.T) {
	a := NewWidth(3, 4)
	b := NewWidth(5, 4)
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Len() != 0 {
		t.Fatalf("Add result width = %d, want 0 (unsized)", sum.Len())
	}
	if sum.Int64() != 8 {
		t.Fatalf("sum = %d, want 8", sum.Int64())
	}
}

func TestNotMasksToWidth(t *testing.T) {
	bv := NewWidth(0b0000_1111, 8)
	inv := bv.Not()
	if inv.Int64() != 0b1111_0000 {
		t.Fatalf("~0b00001111 (width 8) = %#b, want %#b", inv.Int64(), 0b11110000)
	}
}

func TestConcat(t *testing.T) {
	hi := NewWidth(0b10, 2)
	lo := NewWidth(0b011, 3)
	c, err := Concat(hi, lo)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if c.Len() != 5 {
		t.Fatalf("Concat width = %d, want 5", c.Len())
	}
	if c.Int64() != 0b10011 {
		t.Fatalf("Concat value = %#b, want %#b", c.Int64(), 0b10011)
	}
}

func TestFromBitString(t *testing.T) {
	bv, err := FromBitString("10110100")
	if err != nil {
		t.Fatalf("FromBitString: %v", err)
	}
	if bv.Len() != 8 || bv.Int64() != 0b10110100 {
		t.Fatalf("got width=%d value=%d, want width=8 value=%d", bv.Len(), bv.Int64(), int64(0b10110100))
	}
}
