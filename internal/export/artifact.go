package export

// Artifact is the payload read by the playback runtime. Records are encoded as CBOR arrays, so
// field order is part of the format. Entity references are indices into the record tables,
// -1 meaning none.
type Artifact struct {
	_            struct{} `cbor:",toarray"`
	CaseID       string
	Name         string
	Author       string
	Days         int
	TextboxAlpha int
	TitleScreen  int
	InitialBlock string
	Characters   []Character
	Locations    []Location
	Assets       []Asset
	Evidence     []Evidence
	Testimonies  []Testimony
	Segments     []Segment
}

type Character struct {
	_           struct{} `cbor:",toarray"`
	ID          string
	Name        string
	Gender      string
	Caption     string
	Description string
	// Sprite is the embedded sprite sheet. When it is -1 the runtime looks up SpriteName in its
	// own sprite directory.
	Sprite     int
	SpriteName string
	Profile    int
}

type Location struct {
	_        struct{} `cbor:",toarray"`
	ID       string
	Name     string
	Preview  int
	Hotspots []Hotspot
}

// Hotspot is an examinable area of a location. Block is the ID of the block it runs.
type Hotspot struct {
	_      struct{} `cbor:",toarray"`
	X      int
	Y      int
	Width  int
	Height int
	Block  string
}

type Asset struct {
	_         struct{} `cbor:",toarray"`
	ID        string
	Name      string
	Kind      string
	MediaType string
	Data      []byte
}

type Evidence struct {
	_           struct{} `cbor:",toarray"`
	ID          string
	Name        string
	Caption     string
	Description string
	Image       int
	CheckImage  int
}

type Testimony struct {
	_               struct{} `cbor:",toarray"`
	ID              string
	Title           string
	Speaker         int
	NextBlock       string
	FollowLocation  int
	CrossExamineEnd string
	Pieces          []Piece
}

// Piece is one statement of a testimony. PresentEvidence is -1 when nothing contradicts it.
type Piece struct {
	_               struct{} `cbor:",toarray"`
	Text            string
	PresentEvidence int
	PresentBlock    string
	PressBlock      string
	Hidden          bool
}

// Segment holds the instructions of one day and phase.
type Segment struct {
	_            struct{} `cbor:",toarray"`
	Day          int
	Phase        string
	Instructions []Instruction
}

type Op uint8

const (
	OpSay Op = iota
	OpNarrate
)

// Instruction is one flattened text block. Text keeps its trigger sequences for the runtime to
// interpret.
type Instruction struct {
	_        struct{} `cbor:",toarray"`
	Op       Op
	Block    string
	Speaker  int
	Location int
	Time     string
	Text     string
}
