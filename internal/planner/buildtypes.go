package planner

// builtinBuildTypeDflags gives the compiler flags a build-type name folds
// into every surviving target's BuildSettings (spec §4.E step 11). These
// mirror the small set of build types a D-style native toolchain ships by
// default; a recipe-level build type with the same name overrides nothing
// here, it's additive.
var builtinBuildTypeDflags = map[string][]string{
	"plain":             nil,
	"debug":             {"-debug", "-g"},
	"release":           {"-release", "-O", "-inline"},
	"release-debug":     {"-release", "-O", "-inline", "-g"},
	"release-nobounds":  {"-release", "-O", "-inline", "-boundscheck=off"},
	"unittest":          {"-unittest", "-debug", "-g"},
	"unittest-cov":      {"-unittest", "-debug", "-g", "-cov"},
	"profile":           {"-profile", "-g"},
	"docs":              {"-c", "-D", "-Dddocs"},
}
