// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"fmt"
	"os"
	"path/filepath"

	"mvdan.cc/sh/v3/syntax"
)

// BuildScriptName is the optional per-recipe build script.
const BuildScriptName = "build.sh"

// LintBuildScript parses the recipe's build.sh, if present, and returns any
// syntax error. A recipe without a build script passes the lint, since
// conda-build may drive the build entirely from metadata.
func LintBuildScript(recipeDir string) error {
	path := filepath.Join(recipeDir, BuildScriptName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", BuildScriptName, err)
	}
	defer f.Close()

	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(f, BuildScriptName); err != nil {
		return fmt.Errorf("parse %s: %w", BuildScriptName, err)
	}
	return nil
}
