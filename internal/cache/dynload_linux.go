//go:build linux && cgo

package cache

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"golang.org/x/xerrors"
)

// dlHandle is the only point where the cache package touches the OS
// dynamic linker: RTLD_NOW|RTLD_LOCAL dlopen, dlsym for symbol
// extraction, dlclose to unload.
type dlHandle struct {
	path   string
	handle unsafe.Pointer
}

func platformLoadLibrary(path string) (Library, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	h := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_LOCAL)
	if h == nil {
		return nil, xerrors.Errorf("cache: dlopen %s: %s", path, C.GoString(C.dlerror()))
	}
	return &dlHandle{path: path, handle: unsafe.Pointer(h)}, nil
}

func (d *dlHandle) Path() string { return d.path }

func (d *dlHandle) Symbol(name string) (uintptr, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	C.dlerror() // clear any pending error
	sym := C.dlsym(d.handle, cName)
	if err := C.dlerror(); err != nil {
		return 0, xerrors.Errorf("cache: dlsym %s in %s: %s", name, d.path, C.GoString(err))
	}
	return uintptr(sym), nil
}

func (d *dlHandle) Close() error {
	if C.dlclose(d.handle) != 0 {
		return xerrors.Errorf("cache: dlclose %s: %s", d.path, C.GoString(C.dlerror()))
	}
	return nil
}
