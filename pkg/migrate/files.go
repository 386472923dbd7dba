package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeNameRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Migration is one versioned goose SQL file.
type Migration struct {
	Version int64
	Name    string
	Path    string
}

// NewMigration writes an empty goose migration named after the change, e.g.
// "add shipment carrier". Its version sorts after every file already in dir,
// so goose never sees it as out of order.
func NewMigration(dir, name string, now time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, err := Scan(dir)
	if err != nil {
		return "", err
	}
	version, err := strconv.ParseInt(now.UTC().Format(versionLayout), 10, 64)
	if err != nil {
		return "", err
	}
	if n := len(existing); n > 0 && existing[n-1].Version >= version {
		latest, err := time.Parse(versionLayout, strconv.FormatInt(existing[n-1].Version, 10))
		if err != nil {
			return "", fmt.Errorf("parse version of %s: %w", existing[n-1].Path, err)
		}
		version, _ = strconv.ParseInt(latest.Add(time.Second).Format(versionLayout), 10, 64)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", path, err)
	}
	defer f.Close()

	body := fmt.Sprintf(`-- storefront: %[1]s

-- +goose Up
-- +goose StatementBegin
SELECT 'up: %[1]s';
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
SELECT 'down: %[1]s';
-- +goose StatementEnd
`, slug)
	if _, err := f.WriteString(body); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

// Scan lists the SQL migrations in dir by version. Every problem found is
// reported together.
func Scan(dir string) ([]Migration, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var (
		found []Migration
		errs  error
		seen  = map[int64]string{}
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		m := migrationFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, ok := seen[version]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %d already used by %s", name, version, prev))
			continue
		}
		seen[version] = name

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", path, err))
			continue
		}
		if err := checkAnnotations(data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		found = append(found, Migration{Version: version, Name: m[2], Path: path})
	}
	if errs != nil {
		return nil, errs
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Version < found[j].Version })
	return found, nil
}

// ValidateDir reports every malformed migration in dir.
func ValidateDir(dir string) error {
	_, err := Scan(dir)
	return err
}

// checkAnnotations requires an Up section followed by a Down section, with
// StatementBegin/End pairs closed inside each.
func checkAnnotations(data []byte) error {
	var (
		up, down bool
		open     bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "-- +goose Up"):
			if up {
				return fmt.Errorf("repeated -- +goose Up")
			}
			up = true
		case strings.HasPrefix(line, "-- +goose Down"):
			if !up {
				return fmt.Errorf("-- +goose Down before -- +goose Up")
			}
			if open {
				return fmt.Errorf("unclosed StatementBegin in Up section")
			}
			down = true
		case strings.HasPrefix(line, "-- +goose StatementBegin"):
			if open {
				return fmt.Errorf("nested StatementBegin")
			}
			open = true
		case strings.HasPrefix(line, "-- +goose StatementEnd"):
			if !open {
				return fmt.Errorf("StatementEnd without StatementBegin")
			}
			open = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case !up:
		return fmt.Errorf("missing -- +goose Up")
	case !down:
		return fmt.Errorf("missing -- +goose Down")
	case open:
		return fmt.Errorf("unclosed StatementBegin in Down section")
	}
	return nil
}
