package wasmref

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	tferrors "github.com/wippyai/triggerfish/errors"
	"github.com/wippyai/triggerfish/ref"
)

// answerWasm exports "answer" () -> i32 returning 42.
var answerWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (func (result i32))
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	// function section
	0x03, 0x02, 0x01, 0x00,
	// export section: "answer" func 0
	0x07, 0x0a, 0x01, 0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
	// code section: i32.const 42
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b,
}

func newRuntime(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return ctx, rt
}

func instantiate(t *testing.T, ctx context.Context, rt wazero.Runtime) *ref.Strong[Instance] {
	t.Helper()
	compiled, err := Compile(ctx, rt, answerWasm)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s, err := Instantiate(ctx, rt, compiled, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return s
}

func TestCompile_Errors(t *testing.T) {
	ctx, rt := newRuntime(t)

	if _, err := Compile(ctx, nil, answerWasm); !errors.Is(err, tferrors.New(tferrors.PhaseWasm, tferrors.KindNilPointer).Build()) {
		t.Fatalf("Compile(nil runtime) = %v", err)
	}
	if _, err := Compile(ctx, rt, nil); !errors.Is(err, tferrors.InvalidInput(tferrors.PhaseWasm, "")) {
		t.Fatalf("Compile(empty) = %v", err)
	}
	if _, err := Compile(ctx, rt, []byte("not wasm")); err == nil {
		t.Fatal("Compile of garbage should fail")
	}
}

func TestInstantiate_Errors(t *testing.T) {
	ctx, rt := newRuntime(t)

	if _, err := Instantiate(ctx, rt, nil, nil); err == nil {
		t.Fatal("Instantiate(nil compiled) should fail")
	}
	if _, err := Instantiate(ctx, nil, nil, nil); err == nil {
		t.Fatal("Instantiate(nil runtime) should fail")
	}
}

func TestInstantiate_ClosesOnLastRelease(t *testing.T) {
	ctx, rt := newRuntime(t)
	s := instantiate(t, ctx, rt)

	inst, err := s.Instance()
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if !strings.HasPrefix(inst.Name, NamePrefix) {
		t.Fatalf("Name = %q, want prefix %q", inst.Name, NamePrefix)
	}
	if rt.Module(inst.Name) == nil {
		t.Fatal("module should be registered in the runtime")
	}

	if err := s.Retain(); err != nil {
		t.Fatalf("Retain: %v", err)
	}
	_ = s.Release()
	if rt.Module(inst.Name) == nil {
		t.Fatal("module closed while still referenced")
	}

	_ = s.Release()
	if rt.Module(inst.Name) != nil {
		t.Fatal("module should be closed after last release")
	}
}

func TestInstantiate_UniqueNames(t *testing.T) {
	ctx, rt := newRuntime(t)
	compiled, err := Compile(ctx, rt, answerWasm)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	a, err := Instantiate(ctx, rt, compiled, nil)
	if err != nil {
		t.Fatalf("Instantiate a: %v", err)
	}
	defer a.Release()
	b, err := Instantiate(ctx, rt, compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("Instantiate b: %v", err)
	}
	defer b.Release()

	ia, _ := a.Instance()
	ib, _ := b.Instance()
	if ia.Name == ib.Name {
		t.Fatalf("instances share name %q", ia.Name)
	}
}

func TestCall(t *testing.T) {
	ctx, rt := newRuntime(t)
	s := instantiate(t, ctx, rt)

	results, err := Call(ctx, s, "answer")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(results) != 1 || results[0] != 42 {
		t.Fatalf("results = %v, want [42]", results)
	}
	if s.Count() != 1 {
		t.Fatalf("Call leaked a reference, count = %d", s.Count())
	}

	if _, err := Call(ctx, s, "missing"); !errors.Is(err, tferrors.New(tferrors.PhaseWasm, tferrors.KindNotFound).Build()) {
		t.Fatalf("Call(missing) = %v", err)
	}

	_ = s.Release()
	if _, err := Call(ctx, s, "answer"); !errors.Is(err, ref.ErrInvalid) {
		t.Fatalf("Call after release = %v, want ErrInvalid", err)
	}
}

func TestCallWeak(t *testing.T) {
	ctx, rt := newRuntime(t)
	s := instantiate(t, ctx, rt)

	w, err := ref.WeakOf(s)
	if err != nil {
		t.Fatalf("WeakOf: %v", err)
	}
	defer w.Destroy()

	results, err := CallWeak(ctx, w, "answer")
	if err != nil {
		t.Fatalf("CallWeak: %v", err)
	}
	if results[0] != 42 {
		t.Fatalf("result = %d, want 42", results[0])
	}

	_ = s.Release()
	if _, err := CallWeak(ctx, w, "answer"); !errors.Is(err, ref.ErrStrongInvalid) {
		t.Fatalf("CallWeak after release = %v, want ErrStrongInvalid", err)
	}
}
