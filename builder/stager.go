package builder

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sqldef/schemadir/layout"
)

// StageCount is the number of build stages. Data is imported between stage 1
// and stage 2.
const StageCount = 4

const DataStage = 2

// Stage is an ordered group of categories present in a script directory.
type Stage struct {
	Index int
	Dir   string

	// Items are category directories or single <category>.sql files,
	// relative to Dir.
	Items []string
}

// Scripts lists the .sql files of the stage, category by category, each
// directory in file name order.
func (s Stage) Scripts() ([]string, error) {
	var scripts []string
	for _, item := range s.Items {
		path := filepath.Join(s.Dir, item)
		if strings.HasSuffix(item, layout.ScriptExt) {
			scripts = append(scripts, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), layout.ScriptExt) {
				scripts = append(scripts, filepath.Join(path, entry.Name()))
			}
		}
	}
	return scripts, nil
}

// Stager partitions a script directory by the fixed staging convention:
// roles have no dependencies, permissions need most objects in place, foreign
// keys and after_data scripts run once data is loaded, and everything else
// goes in between.
type Stager struct {
	Categories layout.Categories
}

var (
	firstStage = []string{layout.Roles}
	grantStage = []string{layout.Permissions}
	lastStage  = []string{layout.ForeignKeys, layout.AfterData}

	// never run as a script stage
	unstaged = []string{layout.Data, layout.Props}
)

func (s *Stager) Stages(dir string) ([]Stage, error) {
	var middle []string
	for _, name := range s.Categories.Names() {
		if slices.Contains(firstStage, name) || slices.Contains(grantStage, name) ||
			slices.Contains(lastStage, name) || slices.Contains(unstaged, name) {
			continue
		}
		middle = append(middle, name)
	}

	stages := make([]Stage, 0, StageCount)
	for i, names := range [][]string{firstStage, middle, grantStage, lastStage} {
		stage := Stage{Index: i, Dir: dir}
		for _, name := range names {
			if name != layout.AfterData && !s.Categories.Contains(name) {
				continue
			}
			item, err := presentItem(dir, name)
			if err != nil {
				return nil, err
			}
			if item != "" {
				stage.Items = append(stage.Items, item)
			}
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// presentItem returns the directory or <name>.sql file holding a category, or
// "" when the category is absent.
func presentItem(dir, name string) (string, error) {
	info, err := os.Stat(filepath.Join(dir, name))
	if err == nil && info.IsDir() {
		return name, nil
	} else if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	file := name + layout.ScriptExt
	info, err = os.Stat(filepath.Join(dir, file))
	if err == nil && info.Mode().IsRegular() {
		return file, nil
	} else if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return "", nil
}
