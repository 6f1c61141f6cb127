// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/dossier"
	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage"
	"github.com/poiesic/dossier/storage/badgerstore"
	"github.com/poiesic/dossier/storage/filestore"
)

func main() {
	app := &cli.App{
		Name:  "dossier",
		Usage: "Client-resident record store with aggregate counters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "Path to the store directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend (badger or dir)",
				Value: "badger",
			},
			&cli.Int64Flag{
				Name:  "capacity",
				Usage: "Capacity ceiling in bytes",
				Value: storage.DefaultCapacityBytes,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create an empty store if none exists",
				Action: initCommand,
			},
			{
				Name:   "add",
				Usage:  "Add files as records for a subject",
				Action: addCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subject",
						Aliases:  []string{"s"},
						Usage:    "Subject ID the records belong to",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Calendar day (YYYY-MM-DD), default derived from file mtime",
					},
				},
				ArgsUsage: "FILE...",
			},
			{
				Name:   "list",
				Usage:  "List subjects, or one subject's records",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "subject",
						Aliases: []string{"s"},
						Usage:   "Limit to one subject's records",
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Limit to one calendar day",
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a record, or a whole subject",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subject",
						Aliases:  []string{"s"},
						Usage:    "Subject ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "record",
						Aliases: []string{"r"},
						Usage:   "Record ID; omit to delete the whole subject",
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write the whole store to a snapshot file",
				Action: exportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file, default dossier-export-<date>.json",
					},
				},
			},
			{
				Name:      "import",
				Usage:     "Replace the whole store from a snapshot file",
				Action:    importCommand,
				ArgsUsage: "FILE",
			},
			{
				Name:   "status",
				Usage:  "Show usage against the capacity ceiling",
				Action: statusCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStore(c *cli.Context) (*dossier.Store, error) {
	capacity := c.Int64("capacity")

	var blobStore storage.BlobStore
	var err error
	switch c.String("backend") {
	case "badger":
		blobStore, err = badgerstore.Open(c.String("db"), badgerstore.WithCapacity(capacity))
	case "dir":
		blobStore, err = filestore.Open(c.String("db"), filestore.WithCapacity(capacity))
	default:
		return nil, fmt.Errorf("unknown backend %q: must be badger or dir", c.String("backend"))
	}
	if err != nil {
		return nil, err
	}

	return dossier.New(blobStore, dossier.WithCapacity(capacity))
}

func initCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		return err
	}
	fmt.Println("store ready")
	return nil
}

func addCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no files given")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		return err
	}

	var records []*core.Record
	var total int64
	for _, name := range c.Args().Slice() {
		record, err := recordFromFile(name, c.String("date"))
		if err != nil {
			return err
		}
		records = append(records, record)
		total += record.SizeBytes
	}

	if !store.Estimator().HasRoom(total, storage.DefaultSafetyMargin) {
		fmt.Fprintf(os.Stderr, "warning: %d bytes may not fit (%.0f%% in use)\n",
			total, store.Estimator().UsagePercent())
	}

	subjectID := c.String("subject")
	if err := store.AddRecords(subjectID, records); err != nil {
		if errors.Is(err, storage.ErrCapacityExceeded) {
			return fmt.Errorf("store is full: delete records or subjects, then retry: %w", err)
		}
		return err
	}

	for _, record := range records {
		fmt.Printf("%s  %s  %s  %d bytes\n", record.ID, record.Date, record.StoredName, record.SizeBytes)
	}
	return nil
}

func recordFromFile(name, date string) (*core.Record, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}

	if date == "" {
		date = info.ModTime().UTC().Format("2006-01-02")
	}

	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	kind := "document"
	if strings.HasPrefix(mimeType, "image/") {
		kind = "image"
	}

	return &core.Record{
		ID:           core.NewRecordID(),
		OriginalName: filepath.Base(name),
		Kind:         kind,
		MimeType:     mimeType,
		SizeBytes:    info.Size(),
		Date:         date,
		Payload:      base64.StdEncoding.EncodeToString(data),
	}, nil
}

func listCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	subjectID := c.String("subject")
	if subjectID == "" {
		subjects, err := store.ListSubjects()
		if err != nil {
			return err
		}
		if len(subjects) == 0 {
			fmt.Println("no subjects")
			return nil
		}
		for _, subject := range subjects {
			fmt.Printf("%s  %d records  %d bytes  updated %s\n",
				subject.ID, subject.TotalRecords, subject.TotalSizeBytes,
				subject.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	}

	records, err := store.GetRecords(subjectID, c.String("date"))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no records")
		return nil
	}
	for _, record := range records {
		fmt.Printf("%s  %s  %s  %s  %d bytes\n",
			record.ID, record.Date, record.StoredName, record.MimeType, record.SizeBytes)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	subjectID := c.String("subject")
	recordID := c.String("record")

	var deleted bool
	if recordID != "" {
		deleted, err = store.DeleteRecord(subjectID, recordID)
	} else {
		deleted, err = store.DeleteSubject(subjectID)
	}
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Println("not found")
		return nil
	}
	fmt.Println("deleted")
	return nil
}

func exportCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	text, err := store.Export()
	if err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			return errors.New("nothing to export: store is not initialized")
		}
		return err
	}

	out := c.String("out")
	if out == "" {
		out = dossier.ExportFilename(time.Now().UTC())
	}
	if err := os.WriteFile(out, []byte(text), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s (%d bytes)\n", out, len(text))
	return nil
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one snapshot file")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	if err := store.Import(string(data)); err != nil {
		return err
	}

	meta, err := store.Metadata()
	if err != nil {
		return err
	}
	fmt.Printf("imported %d subjects, %d records, %d bytes\n",
		meta.SubjectCount, meta.RecordCount, meta.TotalSizeBytes)
	return nil
}

func statusCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	est := store.Estimator()
	fmt.Printf("used:     %d bytes\n", est.UsedBytes())
	fmt.Printf("capacity: %d bytes\n", est.CapacityBytes())
	fmt.Printf("usage:    %.1f%% (%s)\n", est.UsagePercent(), est.Band())
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:   level,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	return nil
}
