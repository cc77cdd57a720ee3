// Package content describes what a TV should render: a single video or image,
// an image set shown as a carousel or in random order, or an ordered sequence.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Kind string

const (
	KindVideo    Kind = "video"
	KindImage    Kind = "image"
	KindCarousel Kind = "carousel"
	KindRandom   Kind = "random"
	KindSequence Kind = "sequence"
)

const (
	DefaultCarouselInterval = 5000
	DefaultRandomInterval   = 10000
)

// Descriptor is one of *Video, *Image, *Carousel, *Random or *Sequence.
type Descriptor interface {
	Kind() Kind
	descriptor()
}

type Video struct {
	URL      string
	Name     string
	Loop     bool
	Duration *int
}

type Image struct {
	URL      string
	Name     string
	Loop     bool
	Duration *int
}

// Slide is one image of a carousel or random set.
type Slide struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

type Carousel struct {
	URL      string
	Name     string
	Loop     bool
	Images   []Slide
	Interval int // milliseconds
}

type Random struct {
	URL      string
	Name     string
	Loop     bool
	Images   []Slide
	Interval int // milliseconds
}

// Item is one entry of a sequence.
type Item struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Duration *int   `json:"duration"`
	Type     string `json:"type"`
}

type Sequence struct {
	Videos []Item
	Loop   bool
}

func (*Video) Kind() Kind    { return KindVideo }
func (*Image) Kind() Kind    { return KindImage }
func (*Carousel) Kind() Kind { return KindCarousel }
func (*Random) Kind() Kind   { return KindRandom }
func (*Sequence) Kind() Kind { return KindSequence }

func (*Video) descriptor()    {}
func (*Image) descriptor()    {}
func (*Carousel) descriptor() {}
func (*Random) descriptor()   {}
func (*Sequence) descriptor() {}

var ErrUnknownKind = errors.New("unknown content type")

type wire struct {
	Type     Kind              `json:"type"`
	URL      string            `json:"url,omitempty"`
	Name     string            `json:"name,omitempty"`
	Images   []json.RawMessage `json:"images,omitempty"`
	Videos   []Item            `json:"videos,omitempty"`
	Duration *int              `json:"duration,omitempty"`
	Loop     *bool             `json:"loop,omitempty"`
	Interval int               `json:"interval,omitempty"`
}

// Marshal encodes a descriptor into its wire form. A nil descriptor encodes as null.
func Marshal(d Descriptor) ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	w, err := toWire(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func toWire(d Descriptor) (wire, error) {
	loop := func(b bool) *bool { return &b }
	switch v := d.(type) {
	case *Video:
		return wire{Type: KindVideo, URL: v.URL, Name: v.Name, Loop: loop(v.Loop), Duration: v.Duration}, nil
	case *Image:
		return wire{Type: KindImage, URL: v.URL, Name: v.Name, Loop: loop(v.Loop), Duration: v.Duration}, nil
	case *Carousel:
		images, err := encodeSlides(v.Images)
		if err != nil {
			return wire{}, err
		}
		return wire{Type: KindCarousel, URL: v.URL, Name: v.Name, Loop: loop(v.Loop), Images: images, Interval: v.Interval}, nil
	case *Random:
		images, err := encodeSlides(v.Images)
		if err != nil {
			return wire{}, err
		}
		return wire{Type: KindRandom, URL: v.URL, Name: v.Name, Loop: loop(v.Loop), Images: images, Interval: v.Interval}, nil
	case *Sequence:
		videos := v.Videos
		if videos == nil {
			videos = []Item{}
		}
		return wire{Type: KindSequence, Videos: videos, Loop: loop(v.Loop)}, nil
	}
	return wire{}, fmt.Errorf("%w: %T", ErrUnknownKind, d)
}

func encodeSlides(slides []Slide) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(slides))
	for _, s := range slides {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Unmarshal decodes the wire form. JSON null yields a nil descriptor.
// Images may be given as bare URL strings or as {url, name} objects.
func Unmarshal(data []byte) (Descriptor, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	loop := w.Loop != nil && *w.Loop

	switch w.Type {
	case KindVideo:
		return &Video{URL: w.URL, Name: w.Name, Loop: loop, Duration: w.Duration}, nil
	case KindImage:
		return &Image{URL: w.URL, Name: w.Name, Loop: loop, Duration: w.Duration}, nil
	case KindCarousel, KindRandom:
		slides, err := decodeSlides(w.Images)
		if err != nil {
			return nil, err
		}
		if w.Type == KindCarousel {
			interval := w.Interval
			if interval <= 0 {
				interval = DefaultCarouselInterval
			}
			return &Carousel{URL: w.URL, Name: w.Name, Loop: loop, Images: slides, Interval: interval}, nil
		}
		interval := w.Interval
		if interval <= 0 {
			interval = DefaultRandomInterval
		}
		return &Random{URL: w.URL, Name: w.Name, Loop: loop, Images: slides, Interval: interval}, nil
	case KindSequence:
		return &Sequence{Videos: w.Videos, Loop: loop}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, w.Type)
}

func decodeSlides(raw []json.RawMessage) ([]Slide, error) {
	slides := make([]Slide, 0, len(raw))
	for _, r := range raw {
		var url string
		if err := json.Unmarshal(r, &url); err == nil {
			slides = append(slides, Slide{URL: url})
			continue
		}
		var s Slide
		if err := json.Unmarshal(r, &s); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		slides = append(slides, s)
	}
	return slides, nil
}

// Same reports whether two descriptors would render the same thing.
// Sequences compare their video URLs and loop flag; everything else compares
// type and URL.
func Same(a, b Descriptor) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if sa, ok := a.(*Sequence); ok {
		sb := b.(*Sequence)
		if sa.Loop != sb.Loop || len(sa.Videos) != len(sb.Videos) {
			return false
		}
		for i := range sa.Videos {
			if sa.Videos[i].URL != sb.Videos[i].URL {
				return false
			}
		}
		return true
	}
	return PrimaryURL(a) == PrimaryURL(b)
}

// PrimaryURL returns the URL that identifies non-sequence content, or the
// first item's URL for a sequence.
func PrimaryURL(d Descriptor) string {
	switch v := d.(type) {
	case *Video:
		return v.URL
	case *Image:
		return v.URL
	case *Carousel:
		return v.URL
	case *Random:
		return v.URL
	case *Sequence:
		if len(v.Videos) > 0 {
			return v.Videos[0].URL
		}
	}
	return ""
}

// Clone returns a deep copy so the caller can hold on to it while the
// original keeps being mutated.
func Clone(d Descriptor) Descriptor {
	switch v := d.(type) {
	case *Video:
		c := *v
		return &c
	case *Image:
		c := *v
		return &c
	case *Carousel:
		c := *v
		c.Images = append([]Slide(nil), v.Images...)
		return &c
	case *Random:
		c := *v
		c.Images = append([]Slide(nil), v.Images...)
		return &c
	case *Sequence:
		c := *v
		c.Videos = append([]Item(nil), v.Videos...)
		return &c
	}
	return nil
}
