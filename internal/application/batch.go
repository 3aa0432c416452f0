package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archiver/v3"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
)

// batchExtensions are the primary file extensions picked up when walking a directory.
var batchExtensions = map[string]bool{
	".tif": true,
	".shp": true,
	".zip": true,
}

// FileUpload publishes one file, deriving the layer name from its title.
// An existing layer of that name is overwritten when opts.Overwrite is set.
func (s *UploadService) FileUpload(ctx context.Context, path string, opts input.UploadOptions) (*domain.Layer, error) {
	if err := s.CheckServices(ctx); err != nil {
		return nil, err
	}
	return s.fileUpload(ctx, path, opts.Title, opts)
}

// fileUpload names the layer after nameTitle, or the file when it is empty.
// Only opts.Title is stored as the layer title; without it the catalog's
// title is kept.
func (s *UploadService) fileUpload(ctx context.Context, path, nameTitle string, opts input.UploadOptions) (*domain.Layer, error) {
	user, err := s.users.ValidUser(ctx, opts.Username)
	if err != nil {
		return nil, err
	}

	if nameTitle == "" {
		nameTitle = domain.TitleFromFilename(path)
	}
	name := domain.Slugify(nameTitle)

	ref := domain.ProposedName(name)
	existing, err := s.layers.GetByName(ctx, name)
	switch {
	case err == nil:
		ref = domain.ExistingLayer(existing)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	return s.Save(ctx, domain.SaveRequest{
		Layer:       ref,
		BaseFile:    path,
		User:        *user,
		Overwrite:   opts.Overwrite,
		Title:       opts.Title,
		Abstract:    opts.Abstract,
		Keywords:    opts.Keywords,
		Permissions: opts.Permissions,
	})
}

// Upload publishes path. A file yields a single report entry and its error
// is returned. A directory is walked recursively and every .tif, .shp and
// .zip file is uploaded in turn; failures become report entries.
func (s *UploadService) Upload(ctx context.Context, path string, opts input.UploadOptions) (domain.UploadReport, error) {
	if err := s.CheckServices(ctx); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		if err == nil && info.Mode().IsRegular() {
			layer, err := s.fileUpload(ctx, path, opts.Title, opts)
			if err != nil {
				return nil, err
			}
			return domain.UploadReport{{File: path, Name: layer.Name}}, nil
		}
		return nil, domain.WrapError(domain.KindInvalidInput, path, err,
			"please pass a filename or a directory name instead of %s", path)
	}

	candidates, err := walkCandidates(path)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, path, err, "could not walk %s", path)
	}
	s.logger.Info("batch upload started", "dir", path, "files", len(candidates))

	// Every file of a directory gets its own name, so a caller title
	// cannot apply to all of them.
	fileOpts := opts
	fileOpts.Title = ""

	report := make(domain.UploadReport, 0, len(candidates))
	for _, file := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if filepath.Ext(file) == ".zip" {
			report = append(report, s.uploadArchive(ctx, file, fileOpts))
			continue
		}
		report = append(report, s.uploadOne(ctx, file, fileOpts))
	}

	s.logger.Info("batch upload finished", "dir", path, "files", len(report), "failed", report.Failures())
	return report, nil
}

func (s *UploadService) uploadOne(ctx context.Context, file string, opts input.UploadOptions) domain.UploadResult {
	layer, err := s.fileUpload(ctx, file, baseName(file), opts)
	if err != nil {
		msg := fmt.Sprintf("[%s] could not be uploaded. Error was: %v", file, err)
		s.logger.Info("file could not be uploaded", "file", file, "error", err)
		return domain.UploadResult{File: file, Errors: msg, Kind: domain.KindOf(err)}
	}
	return domain.UploadResult{File: file, Name: layer.Name}
}

// uploadArchive unpacks a .zip into a scratch directory and uploads the
// primary files found inside. The archive gets one report entry: Name lists
// the published layers, Errors the members that failed.
func (s *UploadService) uploadArchive(ctx context.Context, archive string, opts input.UploadOptions) domain.UploadResult {
	fail := func(err error) domain.UploadResult {
		msg := fmt.Sprintf("[%s] could not be uploaded. Error was: %v", archive, err)
		return domain.UploadResult{File: archive, Errors: msg, Kind: domain.KindOf(err)}
	}

	dir, err := os.MkdirTemp(s.opts.StagingDir, "geonode-zip-*")
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove scratch directory", "path", dir, "error", err)
		}
	}()

	if err := archiver.Unarchive(archive, dir); err != nil {
		return fail(domain.WrapError(domain.KindInvalidInput, archive, err, "could not unpack %s", archive))
	}

	members, err := walkCandidates(dir)
	if err != nil {
		return fail(err)
	}
	result := domain.UploadResult{File: archive}
	var names, errs []string
	for _, m := range members {
		if filepath.Ext(m) == ".zip" {
			continue
		}
		r := s.uploadOne(ctx, m, opts)
		if r.Failed() {
			rel, _ := filepath.Rel(dir, m)
			errs = append(errs, fmt.Sprintf("%s: %s", filepath.ToSlash(rel), r.Errors))
			if result.Kind == domain.KindUnknown {
				result.Kind = r.Kind
			}
			continue
		}
		names = append(names, r.Name)
	}
	if len(names) == 0 && len(errs) == 0 {
		return fail(domain.NewError(domain.KindUnsupportedFormat, archive,
			"archive %s contains no .shp or .tif file", archive))
	}
	result.Name = strings.Join(names, ",")
	result.Errors = strings.Join(errs, "; ")
	return result
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// walkCandidates returns the files under root with a batch extension, sorted.
func walkCandidates(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && batchExtensions[filepath.Ext(p)] {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
