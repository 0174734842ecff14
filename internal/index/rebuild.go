package index

import (
	"log/slog"
	"strconv"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/validate"
)

// Rebuild re-derives the whole index from the file tree:
//   - every type directory is scanned and each file upserted as a row
//   - unregistered types are auto-registered, taking the base category
//     from a sample file's metadata (documents when undeclared)
//   - numeric sequences are raised to the maximum ID seen per type;
//     date/time-keyed sequences are left untouched
//   - rows whose files are gone are removed
//
// Empty directories are success, not an error. The returned reports say,
// per type, how many files were found and synced.
func Rebuild(db *DB, store storage.Provider, logger *slog.Logger) ([]models.TypeReport, error) {
	dirs, err := store.ListTypeDirs()
	if err != nil {
		return nil, err
	}

	onDisk := make(map[ItemKeyPair]struct{})
	var reports []models.TypeReport

	for _, typeName := range dirs {
		files, err := store.ListType(typeName)
		if err != nil {
			logger.Warn("rebuild: list failed", slog.String("type", typeName), slog.String("error", err.Error()))
			continue
		}

		report := models.TypeReport{Type: typeName, Found: len(files)}

		if len(files) > 0 {
			if err := registerDiscovered(db, store, typeName, files[0], logger); err != nil {
				logger.Warn("rebuild: register type failed", slog.String("type", typeName), slog.String("error", err.Error()))
				reports = append(reports, report)
				continue
			}
		}

		maxID := 0
		for _, f := range files {
			data, err := store.Read(f.Type, f.ID)
			if err != nil {
				logger.Warn("rebuild: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				continue
			}
			meta, body := parser.Decode(data)
			tags := validate.CleanTags(meta.Tags)

			row := ItemRow{
				Type:        f.Type,
				ID:          f.ID,
				Title:       meta.Title,
				Description: meta.Description,
				Priority:    meta.Priority,
				StartDate:   meta.StartDate,
				EndDate:     meta.EndDate,
				Tags:        tags,
				Related:     meta.Related,
				Version:     meta.Version,
				CreatedAt:   meta.CreatedAt,
				UpdatedAt:   meta.UpdatedAt,
			}
			if meta.Status != "" {
				if st, err := db.StatusByName(meta.Status); err == nil {
					row.StatusID = st.ID
				}
			}
			if err := db.UpsertItem(row, body); err != nil {
				logger.Warn("rebuild: upsert failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				continue
			}
			if err := db.EnsureTags(tags); err != nil {
				logger.Warn("rebuild: ensure tags failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			}
			report.Synced++
			onDisk[ItemKeyPair{Type: f.Type, ID: f.ID}] = struct{}{}

			if n, err := strconv.Atoi(f.ID); err == nil && n > maxID {
				maxID = n
			}
		}

		if maxID > 0 && !models.DateKeyed(typeName) {
			if err := db.ReconcileSequence(typeName, maxID); err != nil {
				logger.Warn("rebuild: reconcile failed", slog.String("type", typeName), slog.String("error", err.Error()))
			}
			report.MaxID = maxID
		}

		reports = append(reports, report)
		logger.Debug("rebuild: type scanned",
			slog.String("type", typeName),
			slog.Int("found", report.Found),
			slog.Int("synced", report.Synced))
	}

	// Remove rows whose files no longer exist. A search row is never
	// authoritative; a missing file means the row is stale.
	keys, err := db.AllKeys()
	if err != nil {
		return reports, err
	}
	for k := range keys {
		if _, ok := onDisk[k]; !ok {
			if err := db.DeleteItem(k.Type, k.ID); err != nil {
				logger.Warn("rebuild: prune failed",
					slog.String("type", k.Type), slog.String("id", k.ID),
					slog.String("error", err.Error()))
			} else {
				logger.Debug("rebuild: pruned stale row",
					slog.String("type", k.Type), slog.String("id", k.ID))
			}
		}
	}

	return reports, nil
}

// registerDiscovered auto-registers a type found on disk but absent from
// the registry, using the sample file's declared base category.
func registerDiscovered(db *DB, store storage.Provider, typeName string, sample storage.FileInfo, logger *slog.Logger) error {
	exists, err := db.TypeExists(typeName)
	if err != nil || exists {
		return err
	}
	base := models.CategoryDocuments
	if data, err := store.Read(sample.Type, sample.ID); err == nil {
		meta, _ := parser.Decode(data)
		if declared := models.BaseCategory(meta.Base); declared.Valid() {
			base = declared
		}
	}
	logger.Info("rebuild: registering discovered type",
		slog.String("type", typeName), slog.String("base", string(base)))
	return db.RegisterType(typeName, base, "")
}
