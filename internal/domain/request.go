package domain

// TorrentFlags are the mode bits carried by an add request and persisted in
// resume data.
type TorrentFlags uint32

const (
	FlagSeedMode TorrentFlags = 1 << iota
	FlagShareMode
	FlagSequential
	FlagPaused
	FlagAutoManaged
	// FlagNeedSave marks a torrent whose state differs from its last save.
	FlagNeedSave
)

// Has reports whether all bits of mask are set.
func (f TorrentFlags) Has(mask TorrentFlags) bool {
	return f&mask == mask
}

// Params is the complete description of a torrent as handed to the engine and
// as round-tripped through resume data.
type Params struct {
	Identity       Identity
	Name           string
	SavePath       string
	Trackers       []string
	InfoBytes      []byte
	UploadLimit    int
	DownloadLimit  int
	MaxConnections int
	Flags          TorrentFlags
	// Origin is the descriptor file or magnet URI the torrent came from.
	Origin string
}

// SourceType tells where an add request originated.
type SourceType int

const (
	SourceFile SourceType = iota
	SourceMagnet
	SourceResume
)

func (s SourceType) String() string {
	switch s {
	case SourceMagnet:
		return "magnet"
	case SourceResume:
		return "resume"
	default:
		return "file"
	}
}

// Source is the identity-bearing part of an add request: a parsed descriptor
// file, a parsed magnet link, or stored params.
type Source struct {
	Type SourceType
	// Location is the file path or the magnet URI.
	Location  string
	Identity  Identity
	Name      string
	Trackers  []string
	InfoBytes []byte
}

// Field selects one explicitly set option.
type Field uint16

const (
	FieldSavePath Field = 1 << iota
	FieldUploadLimit
	FieldDownloadLimit
	FieldMaxConnections
	FieldSeedMode
	FieldShareMode
	FieldSequential
	FieldNeedSave
)

// Options are the request-specific settings of the current invocation. Only
// the fields marked in Set take part in resolution.
type Options struct {
	Set            Field
	SavePath       string
	UploadLimit    int
	DownloadLimit  int
	MaxConnections int
	SeedMode       bool
	ShareMode      bool
	Sequential     bool
	NeedSave       bool
}

func (o Options) WithSavePath(p string) Options {
	o.SavePath = p
	o.Set |= FieldSavePath
	return o
}

func (o Options) WithLimits(upload, download int) Options {
	o.UploadLimit, o.DownloadLimit = upload, download
	o.Set |= FieldUploadLimit | FieldDownloadLimit
	return o
}

func (o Options) WithMaxConnections(n int) Options {
	o.MaxConnections = n
	o.Set |= FieldMaxConnections
	return o
}

func (o Options) WithSeedMode(on bool) Options {
	o.SeedMode = on
	o.Set |= FieldSeedMode
	return o
}

func (o Options) WithShareMode(on bool) Options {
	o.ShareMode = on
	o.Set |= FieldShareMode
	return o
}

func (o Options) WithSequential(on bool) Options {
	o.Sequential = on
	o.Set |= FieldSequential
	return o
}

// WithNeedSave controls whether the engine considers the torrent dirty right
// after it has been added.
func (o Options) WithNeedSave(on bool) Options {
	o.NeedSave = on
	o.Set |= FieldNeedSave
	return o
}

// AddRequest is built once per ingestion event and consumed once by the
// engine.
type AddRequest struct {
	Source  Source
	Options Options
	// Overlay holds previously persisted params, if any were found.
	Overlay *Params
}

// Resolve produces the params to hand to the engine. The overlay is applied
// first, then the source, then every explicitly set option, so the current
// invocation wins on conflict.
func (r AddRequest) Resolve() Params {
	var p Params
	if r.Overlay != nil {
		p = *r.Overlay
		p.Trackers = append([]string(nil), r.Overlay.Trackers...)
	} else {
		p.Flags = FlagNeedSave | FlagAutoManaged
	}

	src := r.Source
	if !src.Identity.IsZero() {
		p.Identity = src.Identity
	}
	if src.Name != "" {
		p.Name = src.Name
	}
	if len(src.InfoBytes) > 0 {
		p.InfoBytes = src.InfoBytes
	}
	p.Trackers = mergeTrackers(p.Trackers, src.Trackers)
	if src.Location != "" && src.Type != SourceResume {
		p.Origin = src.Location
	}

	o := r.Options
	if o.Set&FieldSavePath != 0 {
		p.SavePath = o.SavePath
	}
	if o.Set&FieldUploadLimit != 0 {
		p.UploadLimit = o.UploadLimit
	}
	if o.Set&FieldDownloadLimit != 0 {
		p.DownloadLimit = o.DownloadLimit
	}
	if o.Set&FieldMaxConnections != 0 {
		p.MaxConnections = o.MaxConnections
	}
	p.Flags = setFlag(p.Flags, FlagSeedMode, o.Set&FieldSeedMode != 0, o.SeedMode)
	p.Flags = setFlag(p.Flags, FlagShareMode, o.Set&FieldShareMode != 0, o.ShareMode)
	p.Flags = setFlag(p.Flags, FlagSequential, o.Set&FieldSequential != 0, o.Sequential)
	p.Flags = setFlag(p.Flags, FlagNeedSave, o.Set&FieldNeedSave != 0, o.NeedSave)
	return p
}

func setFlag(flags, bit TorrentFlags, explicit, on bool) TorrentFlags {
	if !explicit {
		return flags
	}
	if on {
		return flags | bit
	}
	return flags &^ bit
}

func mergeTrackers(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, tr := range list {
			if tr == "" {
				continue
			}
			if _, ok := seen[tr]; ok {
				continue
			}
			seen[tr] = struct{}{}
			out = append(out, tr)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
