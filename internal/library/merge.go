package library

import "sort"

// MergeEntries combines payloads from several pipeline branches. Entries are
// de-duplicated by Path; for duplicates, later inputs only fill fields the
// earlier ones left empty. The result is sorted by Path.
func MergeEntries(inputs ...[]Entry) []Entry {
	index := make(map[string]int)
	var merged []Entry
	for _, input := range inputs {
		for _, entry := range input {
			pos, ok := index[entry.Path]
			if !ok {
				index[entry.Path] = len(merged)
				merged = append(merged, entry)
				continue
			}
			merged[pos] = fillEmpty(merged[pos], entry)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Path < merged[j].Path })
	return merged
}

func fillEmpty(dst, src Entry) Entry {
	if dst.RelPath == "" {
		dst.RelPath = src.RelPath
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Ext == "" {
		dst.Ext = src.Ext
	}
	if dst.Size == 0 {
		dst.Size = src.Size
	}
	if dst.ModTime.IsZero() {
		dst.ModTime = src.ModTime
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Author == "" {
		dst.Author = src.Author
	}
	if dst.Fingerprint == "" {
		dst.Fingerprint = src.Fingerprint
	}
	return dst
}
