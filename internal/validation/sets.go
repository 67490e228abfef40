package validation

import "sort"

// Module is a top-level Python module name.
type Module string

const (
	ModuleOS              Module = "os"
	ModuleSys             Module = "sys"
	ModuleSubprocess      Module = "subprocess"
	ModuleShutil          Module = "shutil"
	ModuleSocket          Module = "socket"
	ModuleURLLib          Module = "urllib"
	ModuleRequests        Module = "requests"
	ModulePickle          Module = "pickle"
	ModuleCTypes          Module = "ctypes"
	ModuleMultiprocessing Module = "multiprocessing"
	ModulePTY             Module = "pty"
)

// Callable is a bare builtin function name.
type Callable string

const (
	CallableEval    Callable = "eval"
	CallableExec    Callable = "exec"
	CallableOpen    Callable = "open"
	CallableImport  Callable = "__import__"
	CallableCompile Callable = "compile"
)

// SceneBase is a renderer scene class that generated code may inherit from.
type SceneBase string

const (
	SceneBaseScene             SceneBase = "Scene"
	SceneBaseThreeDScene       SceneBase = "ThreeDScene"
	SceneBaseMovingCameraScene SceneBase = "MovingCameraScene"
)

var deniedModules = map[Module]struct{}{
	ModuleOS:              {},
	ModuleSys:             {},
	ModuleSubprocess:      {},
	ModuleShutil:          {},
	ModuleSocket:          {},
	ModuleURLLib:          {},
	ModuleRequests:        {},
	ModulePickle:          {},
	ModuleCTypes:          {},
	ModuleMultiprocessing: {},
	ModulePTY:             {},
}

var deniedCallables = map[Callable]struct{}{
	CallableEval:    {},
	CallableExec:    {},
	CallableOpen:    {},
	CallableImport:  {},
	CallableCompile: {},
}

var sceneBases = []SceneBase{SceneBaseScene, SceneBaseThreeDScene, SceneBaseMovingCameraScene}

// IsDeniedModule reports whether the root of a dotted module path is deny-listed.
func IsDeniedModule(root string) bool {
	_, ok := deniedModules[Module(root)]
	return ok
}

// IsDeniedCallable reports whether name is a deny-listed builtin.
func IsDeniedCallable(name string) bool {
	_, ok := deniedCallables[Callable(name)]
	return ok
}

// IsSceneBase reports whether name is an allow-listed scene base class.
func IsSceneBase(name string) bool {
	for _, base := range sceneBases {
		if string(base) == name {
			return true
		}
	}
	return false
}

// DeniedModules returns the deny-listed module names in sorted order.
func DeniedModules() []string {
	out := make([]string, 0, len(deniedModules))
	for m := range deniedModules {
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

// DeniedCallables returns the deny-listed callables in sorted order.
func DeniedCallables() []string {
	out := make([]string, 0, len(deniedCallables))
	for c := range deniedCallables {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// SceneBases returns the allow-listed scene base names.
func SceneBases() []string {
	out := make([]string, 0, len(sceneBases))
	for _, b := range sceneBases {
		out = append(out, string(b))
	}
	return out
}
