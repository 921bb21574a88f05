package compiler

import "runtime"

// flagTemplate is a compiler family's vocabulary for translating
// BuildSettings fields into argv fragments. The core ships one concrete
// table (GenericDriver); a real deployment resolves a compiler id to one of
// these (or another Driver implementation entirely) outside the core.
type flagTemplate struct {
	versionFlag       string // e.g. "-version="
	debugVersionFlag  string // e.g. "-debug="
	importPathFlag    string // e.g. "-I"
	stringImportFlag  string // e.g. "-J"
	libFlag           string // e.g. "-L-l"
	outputObjFlag     string // e.g. "-of"
	outputExeFlag     string // e.g. "-of"
	syntaxOnlyFlag    string // e.g. "-o-"
	picFlag           string // e.g. "-fPIC"
	compileOnlyFlag   string // e.g. "-c"
	outputIsSeparated bool   // true if output flag takes a separate argv
}

var knownCompilers = map[string]flagTemplate{
	"dmd": {
		versionFlag:     "-version=",
		debugVersionFlag: "-debug=",
		importPathFlag:  "-I",
		stringImportFlag: "-J",
		libFlag:         "-L-l",
		outputObjFlag:   "-of",
		outputExeFlag:   "-of",
		syntaxOnlyFlag:  "-o-",
		picFlag:         "-fPIC",
		compileOnlyFlag: "-c",
	},
	"ldc2": {
		versionFlag:     "-d-version=",
		debugVersionFlag: "-d-debug=",
		importPathFlag:  "-I=",
		stringImportFlag: "-J=",
		libFlag:         "-L-l",
		outputObjFlag:   "-of=",
		outputExeFlag:   "-of=",
		syntaxOnlyFlag:  "-o-",
		picFlag:         "-relocation-model=pic",
		compileOnlyFlag: "-c",
	},
	"gdc": {
		versionFlag:     "-fversion=",
		debugVersionFlag: "-fdebug=",
		importPathFlag:  "-I",
		stringImportFlag: "-J",
		libFlag:         "-l",
		outputObjFlag:   "-o",
		outputExeFlag:   "-o",
		syntaxOnlyFlag:  "-fsyntax-only",
		picFlag:         "-fPIC",
		compileOnlyFlag: "-c",
		outputIsSeparated: true,
	},
}

// defaultTemplate is used for any compiler id not in knownCompilers, so an
// unrecognized but DMD-command-line-compatible compiler still works.
var defaultTemplate = knownCompilers["dmd"]

func templateFor(compilerID string) flagTemplate {
	if t, ok := knownCompilers[compilerID]; ok {
		return t
	}
	return defaultTemplate
}

// ObjSuffix returns the platform object-file extension (spec §4.F:
// ".obj" on Windows, ".o" otherwise).
func ObjSuffix() string {
	if runtime.GOOS == "windows" {
		return ".obj"
	}
	return ".o"
}
