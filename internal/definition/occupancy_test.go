package definition

import (
	"errors"
	"sync"
	"testing"
)

func TestOccupancy_IncrementDecrement(t *testing.T) {
	t.Parallel()

	o := NewOccupancy()
	if !o.IsZero("v") {
		t.Fatal("new tracker should be zero")
	}
	if n := o.Increment("v"); n != 1 {
		t.Errorf("Increment = %d, want 1", n)
	}
	if n := o.Increment("v"); n != 2 {
		t.Errorf("Increment = %d, want 2", n)
	}
	o.Increment("other")

	n, err := o.Decrement("v")
	if err != nil || n != 1 {
		t.Fatalf("Decrement = (%d, %v), want (1, nil)", n, err)
	}
	n, err = o.Decrement("v")
	if err != nil || n != 0 {
		t.Fatalf("Decrement = (%d, %v), want (0, nil)", n, err)
	}
	if !o.IsZero("v") {
		t.Error("v should be zero")
	}
	if o.Count("other") != 1 {
		t.Errorf("other = %d, want 1", o.Count("other"))
	}
}

func TestOccupancy_UnderflowClamps(t *testing.T) {
	t.Parallel()

	o := NewOccupancy()
	n, err := o.Decrement("v")
	if !errors.Is(err, ErrOccupancyUnderflow) {
		t.Fatalf("err = %v, want ErrOccupancyUnderflow", err)
	}
	if n != 0 || o.Count("v") != 0 {
		t.Errorf("count after underflow = %d, want 0", o.Count("v"))
	}
}

func TestOccupancy_Concurrent(t *testing.T) {
	t.Parallel()

	o := NewOccupancy()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				o.Increment("v")
				if _, err := o.Decrement("v"); err != nil {
					t.Errorf("Decrement: %v", err)
					return
				}
				if o.Count("v") < 0 {
					t.Error("count went negative")
					return
				}
			}
		}()
	}
	wg.Wait()
	if !o.IsZero("v") {
		t.Errorf("count = %d, want 0", o.Count("v"))
	}
}
