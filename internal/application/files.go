package application

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/geonode/geonode/internal/domain"
)

// requiredShapefileParts lists the side files a shapefile cannot be read without.
var requiredShapefileParts = []string{domain.RoleSHP, domain.RoleDBF, domain.RoleSHX}

// CollectFiles locates the files that belong to the data set whose primary
// file is path. Sibling files share the primary file's base name and differ
// only in extension, which is matched case-insensitively.
func CollectFiles(path string) (domain.FileSet, error) {
	files := domain.FileSet{Base: path}

	resourceType, err := domain.LayerTypeFor(path)
	if err != nil {
		return files, err
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return files, domain.WrapError(domain.KindInvalidInput, path, err,
			"could not read the directory of %s", path)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base := strings.TrimSuffix(path, filepath.Ext(path))

	if resourceType == domain.ResourceFeatureType {
		for _, ext := range requiredShapefileParts {
			matches := siblings(entries, filepath.Dir(path), stem, ext)
			switch len(matches) {
			case 0:
				return files, domain.NewError(domain.KindMissingHelperFile, path,
					"expected helper file %s does not exist; a shapefile requires helper files with the following extensions: %s",
					base+"."+ext, strings.Join(requiredShapefileParts, ", "))
			case 1:
				setRole(&files, ext, matches[0])
			default:
				return files, domain.NewError(domain.KindAmbiguousHelperFile, path,
					"multiple helper files for %s exist; they need to be distinct by spelling and not just case", path)
			}
		}

		matches := siblings(entries, filepath.Dir(path), stem, domain.RolePRJ)
		switch len(matches) {
		case 0:
		case 1:
			files.PRJ = matches[0]
		default:
			return files, domain.NewError(domain.KindAmbiguousHelperFile, path,
				"multiple helper files for %s exist; they need to be distinct by spelling and not just case", path)
		}
	}

	matches := siblings(entries, filepath.Dir(path), stem, domain.RoleSLD)
	switch len(matches) {
	case 0:
	case 1:
		files.SLD = matches[0]
	default:
		return files, domain.NewError(domain.KindAmbiguousHelperFile, path,
			"multiple style files for %s exist; they need to be distinct by spelling and not just case", path)
	}

	return files, nil
}

// siblings returns the entries named stem + "." + ext, ignoring the case of ext.
func siblings(entries []os.DirEntry, dir, stem, ext string) []string {
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) != len(stem)+1+len(ext) || !strings.HasPrefix(name, stem+".") {
			continue
		}
		if strings.EqualFold(name[len(stem)+1:], ext) {
			matches = append(matches, filepath.Join(dir, name))
		}
	}
	sort.Strings(matches)
	return matches
}

func setRole(files *domain.FileSet, role, path string) {
	switch role {
	case domain.RoleSHP:
		files.SHP = path
	case domain.RoleDBF:
		files.DBF = path
	case domain.RoleSHX:
		files.SHX = path
	}
}
