package ik

import "fmt"

// Bone is a logical humanoid bone the solver needs a reference to.
type Bone int

const (
	Pelvis Bone = iota
	Spine
	Chest
	Head
	LeftShoulder
	LeftUpperArm
	LeftForearm
	LeftHand
	RightShoulder
	RightUpperArm
	RightForearm
	RightHand
	LeftThigh
	LeftCalf
	LeftFoot
	LeftToes
	RightThigh
	RightCalf
	RightFoot
	RightToes

	// BoneCount is the number of logical bones.
	BoneCount
)

var boneNames = [BoneCount]string{
	"pelvis", "spine", "chest", "head",
	"left_shoulder", "left_upper_arm", "left_forearm", "left_hand",
	"right_shoulder", "right_upper_arm", "right_forearm", "right_hand",
	"left_thigh", "left_calf", "left_foot", "left_toes",
	"right_thigh", "right_calf", "right_foot", "right_toes",
}

func (b Bone) String() string {
	if b < 0 || b >= BoneCount {
		return fmt.Sprintf("bone(%d)", int(b))
	}
	return boneNames[b]
}

// Paths maps each logical bone to its hierarchical path in the avatar model.
type Paths [BoneCount]string

// DefaultPaths returns the bone paths of the humanoid metarig.
func DefaultPaths() Paths {
	const (
		rig   = "ScavengerModel/metarig/spine"
		chest = rig + "/spine.001/spine.002/spine.003"
	)
	return Paths{
		Pelvis: rig + "/spine.001",
		Spine:  rig + "/spine.001/spine.002",
		Chest:  chest,
		Head:   chest + "/spine.004",

		LeftShoulder: chest + "/shoulder.L",
		LeftUpperArm: chest + "/shoulder.L/arm.L_upper",
		LeftForearm:  chest + "/shoulder.L/arm.L_upper/arm.L_lower",
		LeftHand:     chest + "/shoulder.L/arm.L_upper/arm.L_lower/hand.L",

		RightShoulder: chest + "/shoulder.R",
		RightUpperArm: chest + "/shoulder.R/arm.R_upper",
		RightForearm:  chest + "/shoulder.R/arm.R_upper/arm.R_lower",
		RightHand:     chest + "/shoulder.R/arm.R_upper/arm.R_lower/hand.R",

		LeftThigh: rig + "/thigh.L",
		LeftCalf:  rig + "/thigh.L/shin.L",
		LeftFoot:  rig + "/thigh.L/shin.L/foot.L",
		LeftToes:  rig + "/thigh.L/shin.L/foot.L/toe.L",

		RightThigh: rig + "/thigh.R",
		RightCalf:  rig + "/thigh.R/shin.R",
		RightFoot:  rig + "/thigh.R/shin.R/foot.R",
		RightToes:  rig + "/thigh.R/shin.R/foot.R/toe.R",
	}
}

// BoneLookup finds a node of the avatar model by hierarchical path and
// returns a stable handle to it.
type BoneLookup interface {
	Find(path string) (handle int, ok bool)
}

// Hierarchy is a BoneLookup over a flat path to handle table.
type Hierarchy map[string]int

// Find returns the handle stored for path.
func (h Hierarchy) Find(path string) (int, bool) {
	handle, ok := h[path]
	return handle, ok
}

// Skeleton is the resolved bone table. Per-frame code indexes it by Bone
// instead of searching the model by path.
type Skeleton struct {
	handles [BoneCount]int
}

// ResolveSkeleton resolves every bone once. A missing bone is fatal: the
// avatar cannot be built without it.
func ResolveSkeleton(lookup BoneLookup, paths Paths) (*Skeleton, error) {
	var s Skeleton
	for b := Bone(0); b < BoneCount; b++ {
		path := paths[b]
		if path == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoBonePath, b)
		}
		h, ok := lookup.Find(path)
		if !ok {
			return nil, fmt.Errorf("%w: %s at %q", ErrBoneNotFound, b, path)
		}
		s.handles[b] = h
	}
	return &s, nil
}

// Handle returns the resolved handle of b.
func (s *Skeleton) Handle(b Bone) int {
	return s.handles[b]
}
