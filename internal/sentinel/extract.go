package sentinel

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Scene is a product whose bands were extracted next to its archive.
type Scene struct {
	Mission Mission `json:"mission"`
	Product Product `json:"product"`
	RedPath string  `json:"red_path,omitempty"`
	NIRPath string  `json:"nir_path,omitempty"`
	VVPath  string  `json:"vv_path,omitempty"`
}

func (s Scene) Files() []string {
	var files []string
	for _, path := range []string{s.RedPath, s.NIRPath, s.VVPath} {
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}

func bandPaths(dir, name string) (red, nir, vv string) {
	return filepath.Join(dir, name+"_RED.jp2"),
		filepath.Join(dir, name+"_NIR.jp2"),
		filepath.Join(dir, name+"_VV.tiff")
}

// resolutionRank prefers 10 m over 20 m Sentinel-2 band files.
func resolutionRank(name string) int {
	switch {
	case strings.Contains(name, "R10m"):
		return 0
	case strings.Contains(name, "R20m"):
		return 2
	}
	return 1
}

// ExtractBands copies the bands needed by the products out of the archive:
// B04/B08 for Sentinel-2 (never the 60 m files) and the VV measurement for
// Sentinel-1.
func ExtractBands(zipPath string, p Product, mission Mission, dir string) (*Scene, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	redPath, nirPath, vvPath := bandPaths(dir, p.Name)
	selected := map[string]*zip.File{}
	rank := map[string]int{}
	pick := func(target string, f *zip.File) {
		current, ok := rank[target]
		if !ok || resolutionRank(f.Name) < current {
			selected[target] = f
			rank[target] = resolutionRank(f.Name)
		}
	}

	for _, f := range r.File {
		name := f.Name
		switch mission {
		case Sentinel2:
			if !strings.HasSuffix(name, ".jp2") || strings.Contains(name, "R60m") {
				continue
			}
			if strings.Contains(name, "_B04_") {
				pick(redPath, f)
			} else if strings.Contains(name, "_B08_") {
				pick(nirPath, f)
			}
		case Sentinel1:
			if strings.Contains(name, "measurement") &&
				strings.Contains(strings.ToLower(name), "-vv-") &&
				strings.HasSuffix(name, ".tiff") {
				pick(vvPath, f)
			}
		}
	}

	scene := &Scene{Mission: mission, Product: p}
	for target, f := range selected {
		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		switch target {
		case redPath:
			scene.RedPath = target
		case nirPath:
			scene.NIRPath = target
		case vvPath:
			scene.VVPath = target
		}
	}

	if mission == Sentinel2 && (scene.RedPath == "" || scene.NIRPath == "") {
		return nil, fmt.Errorf("archive %s has no B04/B08 bands", zipPath)
	}
	if mission == Sentinel1 && scene.VVPath == "" {
		return nil, fmt.Errorf("archive %s has no VV measurement", zipPath)
	}
	return scene, nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := target + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, target)
}
