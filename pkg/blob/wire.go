package blob

import "github.com/goccy/go-json"

// Node type tags of the serialized tree.
const (
	TagBlock         = "dfblock"
	TagInterconnect  = "dfinterconnect"
	TagDefine        = "dfdefine"
	TagRegisterGroup = "dfregistergroup"
	TagCommand       = "dfcommand"
)

type wireProject struct {
	ID string `json:"id"`
	wireEntity
	Created int64      `json:"created"`
	Path    string     `json:"path"`
	Version string     `json:"version"`
	Nodes   []envelope `json:"nodes"`
}

type envelope struct {
	Type string          `json:"__type__"`
	Dump json.RawMessage `json:"__dump__"`
}

type wireEntity struct {
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

type wireBlock struct {
	ID string `json:"id"`
	wireEntity
	Path        string            `json:"path"`
	Type        string            `json:"type"`
	Parent      string            `json:"parent,omitempty"`
	Ports       wirePorts         `json:"ports"`
	Children    []*wireBlock      `json:"children"`
	Connections []*wireConnection `json:"connections"`
	Registers   []*wireRegGroup   `json:"registers"`
	AddressMap  *wireAddressMap   `json:"address_map,omitempty"`
}

type wirePorts struct {
	Input  []*wirePort `json:"input"`
	Output []*wirePort `json:"output"`
	Inout  []*wirePort `json:"inout"`
}

type wirePort struct {
	ID string `json:"id"`
	wireEntity
	Type      string `json:"type"`
	Count     int    `json:"count"`
	Direction string `json:"direction"`
	Block     string `json:"block"`
}

type wirePortRef struct {
	Block string `json:"block"`
	Port  string `json:"port"`
	Index int    `json:"index"`
}

type wireTie struct {
	ID string `json:"id"`
	wireEntity
	Value uint64 `json:"value"`
	Reset bool   `json:"reset"`
	Block string `json:"block"`
}

type wireConnection struct {
	wireEntity
	StartPort  *wirePortRef `json:"start_port,omitempty"`
	StartTie   *wireTie     `json:"start_tie,omitempty"`
	EndPort    *wirePortRef `json:"end_port"`
	StartIndex int          `json:"start_index"`
	EndIndex   int          `json:"end_index"`
}

type wireInitiator struct {
	wireEntity
	Mask   uint64       `json:"mask"`
	Offset int64        `json:"offset"`
	Port   *wirePortRef `json:"port"`
}

type wireTarget struct {
	wireEntity
	Offset   uint64       `json:"offset"`
	Aperture uint64       `json:"aperture"`
	Port     *wirePortRef `json:"port"`
}

type wireConstraint struct {
	wireEntity
	Initiator *wirePortRef `json:"initiator"`
	Target    *wirePortRef `json:"target"`
}

type wireAddressMap struct {
	wireEntity
	Initiators  []*wireInitiator           `json:"initiators"`
	Targets     []*wireTarget              `json:"targets"`
	Constraints []*wireConstraint `json:"constraints,omitempty"`
}

type wireAccess struct {
	Bus   string `json:"bus"`
	Block string `json:"block"`
	Inst  string `json:"inst"`
}

type wireDefine struct {
	ID string `json:"id"`
	wireEntity
	Value json.RawMessage `json:"value"`
}

type wireField struct {
	ID string `json:"id"`
	wireEntity
	LSB    int                    `json:"lsb"`
	Size   int                    `json:"size"`
	Reset  int64                  `json:"reset"`
	Signed bool                   `json:"signed"`
	Access *wireAccess            `json:"access,omitempty"`
	Enum   map[string]*wireDefine `json:"enum,omitempty"`
}

type wireRegister struct {
	ID string `json:"id"`
	wireEntity
	Offset uint64       `json:"offset"`
	Access wireAccess   `json:"access"`
	Fields []*wireField `json:"fields"`
}

type wireRegGroup struct {
	ID string `json:"id"`
	wireEntity
	Offset    uint64          `json:"offset"`
	Registers []*wireRegister `json:"registers"`
}

type wireCommand struct {
	ID string `json:"id"`
	wireEntity
	Width  int          `json:"width"`
	Fields []*wireField `json:"fields"`
}

type wireComponent struct {
	ID string `json:"id"`
	wireEntity
	Role    string                 `json:"role"`
	Type    string                 `json:"type"`
	Count   int                    `json:"count"`
	Width   int                    `json:"width,omitempty"`
	Default int64                  `json:"default,omitempty"`
	Ref     string                 `json:"ref,omitempty"`
	Enum    map[string]*wireDefine `json:"enum,omitempty"`
}

type wireInterconnect struct {
	ID string `json:"id"`
	wireEntity
	Role       string           `json:"role"`
	Components []*wireComponent `json:"components"`
}
