package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/triggerfish/ref"
	"github.com/wippyai/triggerfish/wasmref"
)

// runWasm shares one module instance between owners that each call fn,
// then checks that the instance was closed by the last release.
func runWasm(ctx context.Context, path, fn string, owners, iterations int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := wasmref.Compile(ctx, rt, data)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	inst, err := wasmref.Instantiate(ctx, rt, compiled, nil)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	watch, err := ref.WeakOf(inst)
	if err != nil {
		_ = inst.Release()
		return fmt.Errorf("weak: %w", err)
	}
	defer watch.Destroy()

	refs := make([]*ref.Strong[wasmref.Instance], owners)
	for i := range refs {
		if refs[i], err = inst.Clone(); err != nil {
			return fmt.Errorf("clone: %w", err)
		}
	}
	_ = inst.Release()

	fmt.Printf("Sharing %s between %d owners\n", path, owners)

	var calls atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range refs {
		g.Go(func() error {
			defer s.Release()
			for range iterations {
				if _, err := wasmref.Call(gctx, s, fn); err != nil {
					return err
				}
				calls.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("call %s: %w", fn, err)
	}

	fmt.Printf("Calls: %d\n", calls.Load())
	if _, err := wasmref.CallWeak(ctx, watch, fn); !errors.Is(err, ref.ErrStrongInvalid) {
		return fmt.Errorf("instance still reachable after last release: %v", err)
	}
	fmt.Println("OK: instance closed by last owner")
	return nil
}
