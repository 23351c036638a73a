package publisher

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"ai-slovo/internal/domain/entity"
)

// Image limits for X uploads.
const (
	maxTweetImageDim = 2048
	tweetJPEGQuality = 85
)

// optimizeForTweet re-encodes the artifact as an RGB JPEG no larger than
// 2048x2048. It returns a new artifact and never modifies the input.
func optimizeForTweet(a *entity.GeneratedArtifact) (*entity.GeneratedArtifact, error) {
	src, _, err := image.Decode(bytes.NewReader(a.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxTweetImageDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: tweetJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return a.Derive(buf.Bytes(), "image/jpeg"), nil
}

// fitWithin scales w x h down to fit a limit x limit box, keeping the
// aspect ratio.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
