package logger

import (
	"runtime"
	"strings"
)

type PackageNameResolver struct {
	BasePackage string
	Depth       int
}

// PackageName returns the package of the caller relative to the BasePackage,
// ie "consensus/leader".
func (r *PackageNameResolver) PackageName() string {
	pc, _, _, _ := runtime.Caller(r.depth())
	// For example: github.com/alphabill-org/chainauthority/consensus.init
	pcName := runtime.FuncForPC(pc).Name()
	_, afterBase, found := strings.Cut(pcName, r.BasePackage)
	if !found {
		afterBase = pcName
	}
	// the last path element is "package.Function"
	if i := strings.LastIndex(afterBase, "/"); i >= 0 {
		pkg, _, _ := strings.Cut(afterBase[i:], ".")
		afterBase = afterBase[:i] + pkg
	} else {
		afterBase, _, _ = strings.Cut(afterBase, ".")
	}
	return strings.Trim(afterBase, "/")
}

func (r *PackageNameResolver) depth() int {
	// 2 because it's used from inside logging code. We want the caller of that.
	if r.Depth == 0 {
		return 2
	}
	return r.Depth
}
