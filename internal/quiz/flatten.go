package quiz

// FlattenedQuestion is a question annotated with its owning section and its
// position in the single global sequence. The global index is the only
// question address the session engine uses.
type FlattenedQuestion struct {
	Question
	SectionID   string `json:"sectionId"`
	SectionName string `json:"sectionName"`
	GlobalIndex int    `json:"globalIndex"`
}

// SectionMeta records a section's inclusive slice bounds within the flattened
// sequence, so the UI can render tabs and jump to a section's first question
// in O(1).
type SectionMeta struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
	Count      int    `json:"count"`
}

// Flatten converts a sectioned quiz into one linear question sequence plus
// parallel section metadata. Section order and in-section order are
// preserved; the metadata partitions the sequence contiguously, so
// meta[i].EndIndex+1 == meta[i+1].StartIndex for all consecutive sections.
// Empty sections occupy a zero-width slot (EndIndex == StartIndex-1).
func Flatten(q Quiz) ([]FlattenedQuestion, []SectionMeta) {
	flat := make([]FlattenedQuestion, 0, q.TotalQuestions())
	meta := make([]SectionMeta, 0, len(q.Sections))

	for _, s := range q.Sections {
		start := len(flat)
		for _, qq := range s.Questions {
			flat = append(flat, FlattenedQuestion{
				Question:    qq,
				SectionID:   s.ID,
				SectionName: s.Name,
				GlobalIndex: len(flat),
			})
		}
		meta = append(meta, SectionMeta{
			ID:         s.ID,
			Name:       s.Name,
			StartIndex: start,
			EndIndex:   len(flat) - 1,
			Count:      len(s.Questions),
		})
	}
	return flat, meta
}
