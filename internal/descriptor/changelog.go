package descriptor

import "fmt"

// Action is the mutation a change log entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
)

// ChangeLogLabel is the label of persisted change log nodes.
const ChangeLogLabel = "M_ChangeLog"

// ChangeLogEntry mirrors the properties of one (:M_ChangeLog) node.
type ChangeLogEntry struct {
	Number    int64  `json:"number"`
	ItemGUID  string `json:"item_GUID,omitempty"`
	UserGUID  string `json:"user_GUID,omitempty"`
	Action    Action `json:"action"`
	ItemType  Kind   `json:"itemType"`
	Label     string `json:"label,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Value     any    `json:"value,omitempty"`
	FromGUID  string `json:"from_GUID,omitempty"`
	ToGUID    string `json:"to_GUID,omitempty"`
	GUID      string `json:"M_GUID"`
}

// EntryFromProperties builds an entry from the property map of a returned
// change log node. Unknown keys are ignored.
func EntryFromProperties(props map[string]any) (ChangeLogEntry, error) {
	var e ChangeLogEntry
	switch n := props["number"].(type) {
	case int64:
		e.Number = n
	case int:
		e.Number = int64(n)
	case float64:
		e.Number = int64(n)
	default:
		return ChangeLogEntry{}, fmt.Errorf("change log entry has no integer number (got %T)", props["number"])
	}
	e.ItemGUID, _ = props["item_GUID"].(string)
	e.UserGUID, _ = props["user_GUID"].(string)
	if a, ok := props["action"].(string); ok {
		e.Action = Action(a)
	}
	if t, ok := props["itemType"].(string); ok {
		e.ItemType = Kind(t)
	}
	e.Label, _ = props["label"].(string)
	e.Attribute, _ = props["attribute"].(string)
	e.Value = props["value"]
	e.FromGUID, _ = props["from_GUID"].(string)
	e.ToGUID, _ = props["to_GUID"].(string)
	e.GUID, _ = props["M_GUID"].(string)
	return e, nil
}
