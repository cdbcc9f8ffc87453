// Package wasmref puts wazero module instances behind strong and weak
// references.
//
// Instantiate returns a ref.Strong whose payload holds the api.Module. The
// module is closed when the last reference is released, so several owners
// can share one instance without agreeing on who closes it:
//
//	compiled, err := wasmref.Compile(ctx, rt, wasmBytes)
//	inst, err := wasmref.Instantiate(ctx, rt, compiled, nil)
//	defer inst.Release()
//
//	watch, _ := ref.WeakOf(inst)
//	results, err := wasmref.CallWeak(ctx, watch, "answer")
//
// Instance names are generated, so the same compiled module can be
// instantiated concurrently in one runtime.
package wasmref
