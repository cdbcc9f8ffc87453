package wasmref

import (
	"context"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/triggerfish/errors"
	"github.com/wippyai/triggerfish/ref"
)

// NamePrefix prefixes generated module names.
const NamePrefix = "ref-"

// Instance is the payload of a reference-counted module instance.
type Instance struct {
	Module api.Module
	Name   string
}

// Compile compiles wasm for later instantiation.
func Compile(ctx context.Context, rt wazero.Runtime, wasm []byte) (wazero.CompiledModule, error) {
	if rt == nil {
		return nil, errors.NilPointer(errors.PhaseWasm, "runtime", "wazero.Runtime")
	}
	if len(wasm) == 0 {
		return nil, errors.InvalidInput(errors.PhaseWasm, "empty module binary")
	}
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseWasm, errors.KindInvalidInput, err, "compile module")
	}
	return compiled, nil
}

// Instantiate instantiates compiled under a generated name and returns a
// Strong owning the instance. The module is closed when the last reference
// is released. A nil cfg uses wazero.NewModuleConfig.
func Instantiate(ctx context.Context, rt wazero.Runtime, compiled wazero.CompiledModule, cfg wazero.ModuleConfig) (*ref.Strong[Instance], error) {
	if rt == nil {
		return nil, errors.NilPointer(errors.PhaseWasm, "runtime", "wazero.Runtime")
	}
	if compiled == nil {
		return nil, errors.NilPointer(errors.PhaseWasm, "compiled", "wazero.CompiledModule")
	}
	if cfg == nil {
		cfg = wazero.NewModuleConfig()
	}

	name := NamePrefix + uuid.NewString()
	mod, err := rt.InstantiateModule(ctx, compiled, cfg.WithName(name))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	// The destructor may run long after ctx is done.
	closeCtx := context.WithoutCancel(ctx)
	s, err := ref.Of(&Instance{Module: mod, Name: name}, func(inst *Instance) {
		if err := inst.Module.Close(closeCtx); err != nil {
			ref.Logger().Warn("close module instance",
				zap.String("module", inst.Name),
				zap.Error(err))
			return
		}
		ref.Logger().Debug("module instance closed", zap.String("module", inst.Name))
	})
	if err != nil {
		_ = mod.Close(closeCtx)
		return nil, err
	}
	return s, nil
}

// Call invokes an exported function on the instance owned by s. s is
// retained for the duration of the call, so a concurrent Release cannot
// close the module underneath it.
func Call(ctx context.Context, s *ref.Strong[Instance], fn string, params ...uint64) ([]uint64, error) {
	if err := s.Retain(); err != nil {
		return nil, err
	}
	defer func() {
		_ = s.Release()
	}()
	inst, err := s.Instance()
	if err != nil {
		return nil, err
	}
	return call(ctx, inst, fn, params)
}

// CallWeak upgrades w and invokes fn on the instance. Returns
// ref.ErrStrongInvalid once the instance has been released.
func CallWeak(ctx context.Context, w *ref.Weak[Instance], fn string, params ...uint64) ([]uint64, error) {
	s, err := w.Upgrade()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.Release()
	}()
	inst, err := s.Instance()
	if err != nil {
		return nil, err
	}
	return call(ctx, inst, fn, params)
}

func call(ctx context.Context, inst *Instance, fn string, params []uint64) ([]uint64, error) {
	f := inst.Module.ExportedFunction(fn)
	if f == nil {
		return nil, errors.NotFound(errors.PhaseWasm, "export", fn)
	}
	results, err := f.Call(ctx, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseWasm, errors.KindInvalidState, err, "call "+fn)
	}
	return results, nil
}
