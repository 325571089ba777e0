package models

import jsoniter "github.com/json-iterator/go"

func FitStruct(src any, out any) {
	raw, _ := jsoniter.Marshal(src)
	_ = jsoniter.Unmarshal(raw, out)
}

// FitMap flattens a typed payload into the map shape event bodies use.
func FitMap(src any) map[string]any {
	var out map[string]any
	FitStruct(src, &out)
	return out
}
