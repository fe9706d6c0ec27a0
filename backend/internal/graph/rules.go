package graph

// Relationship kinds written by the builder plus the standard vocabulary
// callers may use. Unknown kinds are accepted everywhere.
const (
	RelSharedTags          = "shared_tags"
	RelMention             = "mention"
	RelReference           = "reference"
	RelParentChild         = "parent_child"
	RelDependency          = "dependency"
	RelSameProject         = "same_project"
	RelSameOrganization    = "same_organization"
	RelCollaboration       = "collaboration"
	RelTemporal            = "temporal"
	RelSemantic            = "semantic"
	RelCustom              = "custom"
	RelContentMention      = "content_mention"
	RelOrganizationMention = "organization_mention"
	RelAssociatedDocument  = "associated_document"
)

// KnownRelationshipKinds lists every kind above.
var KnownRelationshipKinds = []string{
	RelSharedTags,
	RelMention,
	RelReference,
	RelParentChild,
	RelDependency,
	RelSameProject,
	RelSameOrganization,
	RelCollaboration,
	RelTemporal,
	RelSemantic,
	RelCustom,
	RelContentMention,
	RelOrganizationMention,
	RelAssociatedDocument,
}

// Weights of the fixed-weight heuristic edges.
const (
	WeightSameProject         = 1.0
	WeightSameOrganization    = 1.0
	WeightMention             = 1.0
	WeightOrganizationMention = 0.9
	WeightContentMention      = 0.8
	WeightDocumentFallback    = 0.5
	WeightDocumentWeak        = 0.3
)

// RuleKind tags one heuristic rule.
type RuleKind int

const (
	RuleSharedTags RuleKind = iota
	RuleSameProject
	RuleSameOrganization
	RuleMention
	RuleContentMention
	RuleOrganizationMention
	RuleDocumentFallback
	RuleDocumentWeak
)

// Patch is the partial edge attribute map one rule produces. Patches for the
// same pair are merged in evaluation order; later keys overwrite earlier ones
// and everything else survives.
type Patch struct {
	Rule  RuleKind
	Attrs map[string]any
}

func sharedTagsPatch(common StringSet) Patch {
	return Patch{Rule: RuleSharedTags, Attrs: map[string]any{
		AttrRelationship: RelSharedTags,
		AttrWeight:       float64(len(common)),
		RelSharedTags:    common.Sorted(),
	}}
}

func sameProjectPatch(project string) Patch {
	return Patch{Rule: RuleSameProject, Attrs: map[string]any{
		AttrRelationship: RelSameProject,
		AttrWeight:       WeightSameProject,
		FieldProject:     project,
	}}
}

func sameOrganizationPatch(org string) Patch {
	return Patch{Rule: RuleSameOrganization, Attrs: map[string]any{
		AttrRelationship:  RelSameOrganization,
		AttrWeight:        WeightSameOrganization,
		FieldOrganization: org,
	}}
}

func weightOnly(rule RuleKind, rel string, weight float64) Patch {
	return Patch{Rule: rule, Attrs: map[string]any{
		AttrRelationship: rel,
		AttrWeight:       weight,
	}}
}

func mentionPatch() Patch {
	return weightOnly(RuleMention, RelMention, WeightMention)
}

func contentMentionPatch() Patch {
	return weightOnly(RuleContentMention, RelContentMention, WeightContentMention)
}

func organizationMentionPatch() Patch {
	return weightOnly(RuleOrganizationMention, RelOrganizationMention, WeightOrganizationMention)
}

func documentFallbackPatch() Patch {
	return weightOnly(RuleDocumentFallback, RelAssociatedDocument, WeightDocumentFallback)
}

func documentWeakPatch() Patch {
	return weightOnly(RuleDocumentWeak, RelAssociatedDocument, WeightDocumentWeak)
}

// samePair returns the patches for two records of the same kind, in
// precedence order.
func samePair(kind Kind, a, b Record) []Patch {
	var patches []Patch
	switch kind {
	case KindTask:
		if p := a.Project(); p != "" && p == b.Project() {
			patches = append(patches, sameProjectPatch(p))
		}
	case KindContact:
		if o := a.Organization(); o != "" && o == b.Organization() {
			patches = append(patches, sameOrganizationPatch(o))
		}
	case KindNote, KindDocument:
	}
	if common := a.Tags().Intersect(b.Tags()); len(common) > 0 {
		patches = append(patches, sharedTagsPatch(common))
	}
	return patches
}

// noteTask returns the patches for a note and a task.
func noteTask(note, task Record) []Patch {
	var patches []Patch
	if common := note.Tags().Intersect(task.Tags()); len(common) > 0 {
		patches = append(patches, sharedTagsPatch(common))
	}
	if containsFold(note.Content(), task.Title()) {
		patches = append(patches, mentionPatch())
	}
	return patches
}

// documentTarget returns the single patch (if any) linking a tagged document
// to a note, task or contact. docTags is tags ∪ topics of the document.
func documentTarget(kind Kind, doc Record, docTags StringSet, target Record) (Patch, bool) {
	if common := docTags.Intersect(target.Tags()); len(common) > 0 {
		return sharedTagsPatch(common), true
	}
	title := doc.Title()
	switch kind {
	case KindNote:
		if containsFold(target.Content(), title) {
			return contentMentionPatch(), true
		}
		if doc.Content() == "" {
			return documentWeakPatch(), true
		}
	case KindTask:
		if containsFold(target.Title(), title) || containsFold(target.Description(), title) {
			return contentMentionPatch(), true
		}
	case KindContact:
		content := doc.Content()
		if containsFold(content, target.Name()) {
			return mentionPatch(), true
		}
		if containsFold(content, target.Organization()) {
			return organizationMentionPatch(), true
		}
	case KindDocument:
	}
	return Patch{}, false
}
