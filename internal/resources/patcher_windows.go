//go:build windows

package resources

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/tc-hib/winres"
	"golang.org/x/image/draw"

	"github.com/inspa-project/inspa/internal/config"
)

// iconSizes mirrors the standard Windows icon size set winres expects
// when building an icon group from a single source image.
var iconSizes = []int{16, 24, 32, 48, 64, 128, 256}

type windowsPatcher struct{}

func newPlatformPatcher() Patcher { return windowsPatcher{} }

// PatchIcon loads the configured icon (a .ico file, or any raster
// image resized into the icon size set) and embeds it into the
// stub's resource section, following the same
// load-existing-set-write-atomically-replace sequence the teacher
// uses to embed its own payload as a PE resource.
func (windowsPatcher) PatchIcon(exePath string, cfg config.ResourcesConfig, logger hclog.Logger) error {
	if cfg.Icon == "" {
		return nil
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	icon, err := loadIcon(cfg.Icon)
	if err != nil {
		return fmt.Errorf("load icon %q: %w", cfg.Icon, err)
	}

	in, err := os.Open(exePath)
	if err != nil {
		return fmt.Errorf("open exe: %w", err)
	}
	rs, err := winres.LoadFromEXE(in)
	if err != nil {
		logger.Debug("no existing resource set, starting fresh", "exe", exePath)
		rs = &winres.ResourceSet{}
	}
	if closeErr := in.Close(); closeErr != nil {
		return fmt.Errorf("close exe after read: %w", closeErr)
	}

	if err := rs.SetIcon(winres.ID(1), icon); err != nil {
		return fmt.Errorf("set icon resource: %w", err)
	}

	in2, err := os.Open(exePath)
	if err != nil {
		return fmt.Errorf("reopen exe: %w", err)
	}
	tmpPath := exePath + ".icontmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		in2.Close()
		return fmt.Errorf("create temp exe: %w", err)
	}

	if err := rs.WriteToEXE(out, in2); err != nil {
		out.Close()
		in2.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write resources: %w", err)
	}
	if err := out.Close(); err != nil {
		in2.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("close temp exe: %w", err)
	}
	if err := in2.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close source exe: %w", err)
	}

	if err := os.Rename(tmpPath, exePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace exe: %w", err)
	}

	logger.Info("patched application icon", "exe", exePath, "icon", cfg.Icon)
	return nil
}

// loadIcon accepts a .ico file directly; any other raster format is
// decoded and resized to the standard icon size set with a
// Catmull-Rom kernel before being handed to winres.
func loadIcon(path string) (*winres.Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if hasSuffixFold(path, ".ico") {
		return winres.LoadICO(f)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode icon source: %w", err)
	}
	return winres.NewIconFromResizedImage(resizeForIcon(img), iconSizes)
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := 0; i < len(suffix); i++ {
		c := tail[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != suffix[i] {
			return false
		}
	}
	return true
}

// resizeForIcon upsamples source art smaller than the largest icon
// size to a 256x256 canvas; winres itself downsamples from that
// canvas to the smaller sizes.
func resizeForIcon(src image.Image) image.Image {
	b := src.Bounds()
	if b.Dx() >= 256 && b.Dy() >= 256 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, 256, 256))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
