package secmem_test

import (
	"bytes"
	"testing"

	"github.com/fam007e/securepass/secmem"
)

func TestFrom_WipesSource(t *testing.T) {
	src := []byte("sensitive")

	buf := secmem.From(src)
	defer buf.Destroy()

	if !bytes.Equal(src, make([]byte, len(src))) {
		t.Error("source slice was not wiped")
	}

	if got, want := string(buf.Bytes()), "sensitive"; got != want {
		t.Errorf("buffer contents = %q, want %q", got, want)
	}
}

func TestBuffer_Destroy(t *testing.T) {
	buf := secmem.From([]byte("secret"))

	backing := buf.Bytes()

	buf.Destroy()

	if !bytes.Equal(backing, make([]byte, len(backing))) {
		t.Error("backing slice was not zeroed on destroy")
	}

	if buf.Bytes() != nil {
		t.Error("Bytes should return nil after Destroy")
	}

	if buf.Len() != 0 {
		t.Error("Len should return 0 after Destroy")
	}

	// second destroy is a no-op
	buf.Destroy()
}

func TestBuffer_Equal(t *testing.T) {
	a := secmem.From([]byte("same"))
	defer a.Destroy()

	b := secmem.From([]byte("same"))
	defer b.Destroy()

	c := secmem.From([]byte("diff"))
	defer c.Destroy()

	if !a.Equal(b) {
		t.Error("equal buffers compared unequal")
	}

	if a.Equal(c) {
		t.Error("different buffers compared equal")
	}

	d := secmem.From([]byte("gone"))
	d.Destroy()

	if a.Equal(d) {
		t.Error("destroyed buffer compared equal")
	}
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}

	secmem.Wipe(b)

	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Errorf("wipe left %v", b)
	}
}

func TestEqual(t *testing.T) {
	if !secmem.Equal([]byte("a"), []byte("a")) {
		t.Error("identical slices compared unequal")
	}

	if secmem.Equal([]byte("a"), []byte("b")) {
		t.Error("different slices compared equal")
	}

	if secmem.Equal([]byte("a"), []byte("ab")) {
		t.Error("different lengths compared equal")
	}
}
