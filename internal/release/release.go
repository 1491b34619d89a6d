// Package release packages the plugin bundle and maintains the appcast
// manifest the host polls for updates.
package release

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	Identifier    = "karasu.qwen-mt.translator"
	MinBobVersion = "1.8.0"
	downloadURL   = "https://github.com/karasushin/bob-plugin-qwen-mt-translator/releases/download/v%s/%s"
)

// ArtifactName returns the bundle file name for version.
func ArtifactName(version string) string {
	return fmt.Sprintf("qwen-mt-translator-%s.bobplugin", version)
}

// Version is one entry of the appcast.
type Version struct {
	Version       string `json:"version"`
	Desc          string `json:"desc"`
	SHA256        string `json:"sha256"`
	URL           string `json:"url"`
	MinBobVersion string `json:"minBobVersion"`
}

// Appcast is the update manifest, newest version first.
type Appcast struct {
	Identifier string    `json:"identifier"`
	Versions   []Version `json:"versions"`
}

// Pack zips the contents of dir (not dir itself) into out, replacing any
// existing file. It returns the archive size in bytes.
func Pack(dir, out string) (int64, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("release: pack: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("release: pack: %s is not a directory", dir)
	}

	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("release: pack: remove old archive: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("release: pack: %w", err)
	}

	size, err := writeArchive(f, dir)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("release: pack: %w", err)
	}
	return size, nil
}

func writeArchive(f *os.File, dir string) (int64, error) {
	self, err := f.Stat()
	if err != nil {
		return 0, err
	}

	zw := zip.NewWriter(f)
	if err := addDir(zw, dir, self); err != nil {
		_ = zw.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// addDir adds everything under dir except the archive being written.
func addDir(zw *zip.Writer, dir string, self os.FileInfo) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if os.SameFile(info, self) {
			return nil
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
			_, err = zw.CreateHeader(hdr)
			return err
		}
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
}

// Checksum returns the hex SHA-256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("release: checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("release: checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// UpdateAppcast hashes artifact and prepends a version entry to the appcast at
// path, creating the file when absent.
func UpdateAppcast(path, artifact, version, desc string) (Version, error) {
	if version == "" || desc == "" {
		return Version{}, errors.New("release: version and description are required")
	}

	sum, err := Checksum(artifact)
	if err != nil {
		return Version{}, err
	}

	appcast, err := readAppcast(path)
	if err != nil {
		return Version{}, err
	}

	entry := Version{
		Version:       version,
		Desc:          desc,
		SHA256:        sum,
		URL:           fmt.Sprintf(downloadURL, version, filepath.Base(artifact)),
		MinBobVersion: MinBobVersion,
	}
	appcast.Versions = append([]Version{entry}, appcast.Versions...)

	if err := writeAppcast(path, appcast); err != nil {
		return Version{}, err
	}
	return entry, nil
}

func readAppcast(path string) (*Appcast, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Appcast{Identifier: Identifier, Versions: []Version{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("release: read appcast: %w", err)
	}

	var a Appcast
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("release: decode appcast: %w", err)
	}
	return &a, nil
}

func writeAppcast(path string, a *Appcast) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("release: encode appcast: %w", err)
	}

	if err := os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return fmt.Errorf("release: write appcast: %w", err)
	}
	return nil
}
