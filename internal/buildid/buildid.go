// Package buildid derives the content-keyed cache directory name for a
// target (spec §4.C), hashing only the subset of BuildSettings that affects
// emitted bytes. It uses xxhash rather than a cryptographic hash: the
// build-ID only needs to be collision-resistant against accidental cache
// aliasing between configurations, not adversarial inputs, and the pack's
// own content-addressing code (traiproject-same's fs.Hasher) makes the same
// tradeoff for the same reason.
package buildid

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/nativebuild/nbs/internal/model"
)

// Compute returns the full build-ID string:
// <config>-<buildType>-<platform>-<arch>-<compiler>_<frontend>-<hexdigest>
func Compute(settings *model.BuildSettings, gs model.GeneratorSettings) string {
	return fmt.Sprintf("%s-%s-%s-%s-%s_%s-%s",
		gs.Config,
		gs.BuildType,
		strings.Join(gs.Platform.PlatformTags, "."),
		strings.Join(gs.Platform.ArchTags, "."),
		gs.Platform.CompilerID,
		gs.Platform.FrontendVer,
		Digest(settings, gs),
	)
}

// Digest hashes exactly the inputs spec §4.C says affect the compiler's
// emitted bytes: versions, debugVersions, dflags, lflags, the options
// bitmask, and stringImportPaths. sourceFiles/importFiles are deliberately
// excluded — they feed the up-to-date check via mtime instead.
func Digest(settings *model.BuildSettings, gs model.GeneratorSettings) string {
	h := xxhash.New()

	writeField := func(label string, vals []string) {
		h.Write([]byte(label))
		h.Write([]byte{0})
		for _, v := range vals {
			h.Write([]byte(v))
			h.Write([]byte{0})
		}
	}

	h.Write([]byte(gs.Config))
	h.Write([]byte{0})
	h.Write([]byte(gs.BuildType))
	h.Write([]byte{0})
	h.Write([]byte(gs.Platform.CompilerID))
	h.Write([]byte{0})
	h.Write([]byte(gs.Platform.FrontendVer))
	h.Write([]byte{0})
	writeField("platform", gs.Platform.PlatformTags)
	writeField("arch", gs.Platform.ArchTags)

	writeField("versions", settings.Versions)
	writeField("debugVersions", settings.DebugVersions)
	writeField("dflags", settings.Dflags)
	writeField("lflags", settings.Lflags)
	writeField("stringImportPaths", settings.StringImportPaths)

	fmt.Fprintf(h, "options:%d", uint32(settings.Options))

	return fmt.Sprintf("%016x", h.Sum64())[:12]
}
