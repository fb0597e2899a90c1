// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"context"
	"errors"
	"testing"

	"github.com/modgate/modgate/pkg/metadata"
)

func TestStaticRuntime(t *testing.T) {
	t.Parallel()

	rt := NewStaticRuntime()
	module := &metadata.Module{Name: "Acme.Weather"}
	rt.MustRegister("Acme.Weather", "Acme.Weather.Mod", func() Mod { return &testMod{id: "weather"} })
	rt.MustRegister("Acme.Weather", "Acme.Weather.Nil", func() Mod { return nil })

	m, err := rt.Instantiate(context.Background(), module, "Acme.Weather.Mod")
	if err != nil || m.ModID() != "weather" {
		t.Fatalf("Instantiate() = %v, %v", m, err)
	}

	if _, err := rt.Instantiate(context.Background(), module, "Acme.Weather.Other"); !errors.Is(err, ErrNoFactory) {
		t.Errorf("unregistered type error = %v, want ErrNoFactory", err)
	}
	if _, err := rt.Instantiate(context.Background(), &metadata.Module{Name: "Acme.Other"}, "Acme.Weather.Mod"); !errors.Is(err, ErrNoFactory) {
		t.Errorf("factories must be scoped to their module, got %v", err)
	}
	if _, err := rt.Instantiate(context.Background(), module, "Acme.Weather.Nil"); err == nil {
		t.Error("nil instance should be an error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rt.Instantiate(ctx, module, "Acme.Weather.Mod"); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled Instantiate() error = %v", err)
	}
}

func TestStaticRuntime_Register(t *testing.T) {
	t.Parallel()

	rt := NewStaticRuntime()
	f := func() Mod { return &testMod{id: "x"} }
	if err := rt.Register("M", "T", f); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := rt.Register("M", "T", f); err == nil {
		t.Error("duplicate Register() should fail")
	}
	if err := rt.Register("M", "U", nil); err == nil {
		t.Error("nil factory should be rejected")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRegister() should panic on duplicates")
		}
	}()
	rt.MustRegister("M", "T", f)
}

func TestStaticRuntime_RecoversPanics(t *testing.T) {
	t.Parallel()

	rt := NewStaticRuntime()
	rt.MustRegister("M", "T", func() Mod { panic("ctor exploded") })

	if _, err := rt.Instantiate(context.Background(), &metadata.Module{Name: "M"}, "T"); err == nil {
		t.Fatal("expected panic to be converted into an error")
	}
}
