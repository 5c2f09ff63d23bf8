package gltfchar

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/optchar/config"
	"github.com/mogaika/optchar/optchar"
	"github.com/mogaika/optchar/utils"
	"github.com/mogaika/optchar/utils/gltfutils"
)

const (
	nodeHip = iota
	nodeSpine
	nodeArm
	nodeTail
	nodeBody
)

func yaw(a float64) [4]float32 {
	return utils.QuatToXYZW(mgl64.QuatRotate(a, mgl64.Vec3{0, 1, 0}))
}

func translationInverse(x, y, z float32) [4][4]float32 {
	return [4][4]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {-x, -y, -z, 1}}
}

// testDoc is a skinned dog:
//
//	hip (animated)
//	  spine (static, skins half of one vertex)
//	    arm (animated)
//	  tail (identity, unskinned)
func testDoc(t *testing.T) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "hip", Children: []uint32{nodeSpine, nodeTail}},
		{Name: "spine", Translation: [3]float32{0, 1, 0}, Children: []uint32{nodeArm}},
		{Name: "arm", Translation: [3]float32{1, 0, 0}},
		{Name: "tail"},
		{Name: "body", Mesh: gltf.Index(0), Skin: gltf.Index(0)},
	}
	doc.Scenes[0].Nodes = []uint32{nodeHip, nodeBody}

	position := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}})
	joints := modeler.WriteJoints(doc, [][4]uint16{{0, 0, 0, 0}, {1, 2, 0, 0}, {2, 0, 0, 0}})
	weights := modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}, {1, 0, 0, 0}})
	doc.Meshes = []*gltf.Mesh{{
		Name: "body",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{"POSITION": position, "JOINTS_0": joints, "WEIGHTS_0": weights},
		}},
	}}

	ibm := modeler.WriteAccessor(doc, gltf.TargetNone, [][4][4]float32{
		translationInverse(0, 0, 0),
		translationInverse(0, 1, 0),
		translationInverse(1, 1, 0),
		translationInverse(0, 0, 0),
	})
	doc.Skins = []*gltf.Skin{{
		Name:                "dog",
		Joints:              []uint32{nodeHip, nodeSpine, nodeArm, nodeTail},
		InverseBindMatrices: gltf.Index(ibm),
	}}

	input := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1, 2})
	hipRot := modeler.WriteAccessor(doc, gltf.TargetNone, [][4]float32{yaw(0), yaw(0.5), yaw(1)})
	armRot := modeler.WriteAccessor(doc, gltf.TargetNone, [][4]float32{yaw(0), yaw(-0.5), yaw(0.25)})
	doc.Animations = []*gltf.Animation{{
		Name: "walk",
		Samplers: []*gltf.AnimationSampler{
			{Input: gltf.Index(input), Output: gltf.Index(hipRot)},
			{Input: gltf.Index(input), Output: gltf.Index(armRot)},
		},
		Channels: []*gltf.Channel{
			{Sampler: gltf.Index(0), Target: gltf.ChannelTarget{Node: gltf.Index(nodeHip), Path: gltf.TRSRotation}},
			{Sampler: gltf.Index(1), Target: gltf.ChannelTarget{Node: gltf.Index(nodeArm), Path: gltf.TRSRotation}},
		},
	}}
	return doc
}

func restWorld(s *Scene, node int) mgl64.Mat4 {
	return gltfutils.WorldMatrix(s.parents, node, -1, s.restLocal)
}

func optimize(t *testing.T, s *Scene, opts config.Options) *optchar.Result {
	res, err := optchar.New(opts).Run(s.Collection)
	require.NoError(t, err)
	require.NoError(t, s.Apply())
	return res
}

func TestLoad(t *testing.T) {
	s, err := Load(testDoc(t))
	require.NoError(t, err)
	require.Equal(t, 1, s.Collection.NumCharacters())

	ch := s.Character(0)
	assert.Equal(t, "dog", ch.Name)
	assert.Equal(t, 5, ch.NumJoints())
	assert.Equal(t, 2, ch.NumModels())
	assert.Equal(t, "walk", ch.Model(1).Name)
	assert.Equal(t, []float64{0, 1, 2}, ch.Model(1).Times)

	spine := ch.FindJoint("spine")
	arm := ch.FindJoint("arm")
	require.NotNil(t, spine)
	require.NotNil(t, arm)
	assert.Same(t, spine, arm.Parent())
	assert.Same(t, ch.Root(), ch.FindJoint("hip").Parent())
	assert.True(t, utils.Mat4AlmostEqual(mgl64.Translate3D(0, 1, 0), spine.Frame(0, 0), 1e-6))

	assert.Equal(t, 3, ch.FindJoint("hip").NumFrames(1))
	assert.Equal(t, 1, spine.NumFrames(1))
	assert.True(t, utils.Mat4AlmostEqual(
		mgl64.Translate3D(1, 0, 0).Mul4(mgl64.HomogRotate3DY(-0.5)), arm.Frame(1, 1), 1e-5))

	require.Len(t, ch.Vertices(), 3)
	v := ch.Vertices()[1]
	assert.Equal(t, 0.5, v.Membership(spine))
	assert.Equal(t, 0.5, v.Membership(arm))
}

func TestClassifyLoaded(t *testing.T) {
	s, err := Load(testDoc(t))
	require.NoError(t, err)
	ch := s.Character(0)

	ann := optchar.NewAnnotations()
	optchar.Classify(ch, ann, config.DefaultTolerance)
	assert.Equal(t, optchar.Flags(0), ann.Flags(ch.FindJoint("hip")))
	assert.Equal(t, optchar.FlagStatic, ann.Flags(ch.FindJoint("spine")))
	assert.Equal(t, optchar.Flags(0), ann.Flags(ch.FindJoint("arm")))
	assert.Equal(t, optchar.FlagStatic|optchar.FlagIdentity|optchar.FlagEmpty, ann.Flags(ch.FindJoint("tail")))
}

func TestApplyRewritesSkin(t *testing.T) {
	doc := testDoc(t)
	s, err := Load(doc)
	require.NoError(t, err)
	armWorld := restWorld(s, nodeArm)

	res := optimize(t, s, config.Default())
	assert.Equal(t, "dog: of 5 joints, removing 1 identity, 1 static, and 0 empty joints, leaving 3.",
		res.Compactions[0].Summary())

	skin := doc.Skins[0]
	assert.Equal(t, []uint32{nodeHip, nodeArm}, skin.Joints)
	assert.Contains(t, doc.Nodes[nodeHip].Children, uint32(nodeArm))
	assert.NotContains(t, doc.Nodes[nodeSpine].Children, uint32(nodeArm))
	assert.Equal(t, [3]float32{1, 1, 0}, doc.Nodes[nodeArm].Translation)
	assert.True(t, utils.Mat4AlmostEqual(armWorld, restWorld(s, nodeArm), 1e-5))

	data, err := modeler.ReadAccessor(doc, doc.Accessors[*skin.InverseBindMatrices], nil)
	require.NoError(t, err)
	assert.Equal(t, [][4][4]float32{translationInverse(0, 0, 0), translationInverse(1, 1, 0)}, data)

	prim := doc.Meshes[0].Primitives[0]
	joints, err := modeler.ReadJoints(doc, doc.Accessors[prim.Attributes["JOINTS_0"]], nil)
	require.NoError(t, err)
	weights, err := modeler.ReadWeights(doc, doc.Accessors[prim.Attributes["WEIGHTS_0"]], nil)
	require.NoError(t, err)
	assert.Equal(t, [][4]uint16{{0, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}, joints)
	assert.Equal(t, [][4]float32{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}, {1, 0, 0, 0}}, weights)

	var armPaths []gltf.TRSProperty
	for _, ch := range doc.Animations[0].Channels {
		if *ch.Target.Node == nodeArm {
			armPaths = append(armPaths, ch.Target.Path)
		}
	}
	assert.ElementsMatch(t, []gltf.TRSProperty{gltf.TRSTranslation, gltf.TRSRotation, gltf.TRSScale}, armPaths)

	// reloading reproduces the optimized animation
	reloaded, err := Load(doc)
	require.NoError(t, err)
	arm := reloaded.Character(0).FindJoint("arm")
	require.NotNil(t, arm)
	assert.Equal(t, "hip", arm.Parent().Name())
	want := mgl64.Translate3D(1, 1, 0).Mul4(mgl64.HomogRotate3DY(0.25))
	assert.True(t, utils.Mat4AlmostEqual(want, arm.Frame(1, 2), 1e-5))
}

func TestApplyMarksExposedJoints(t *testing.T) {
	doc := testDoc(t)
	s, err := Load(doc)
	require.NoError(t, err)

	opts := config.Default()
	opts.Expose = []string{"tail"}
	optimize(t, s, opts)

	assert.Equal(t, []uint32{nodeHip, nodeTail, nodeArm}, doc.Skins[0].Joints)
	assert.Equal(t, map[string]interface{}{"exposed": true}, doc.Nodes[nodeTail].Extras)
	assert.Nil(t, doc.Nodes[nodeHip].Extras)
}

func TestApplyBindsRootWhenNeeded(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "only", Translation: [3]float32{0, 2, 0}},
		{Name: "body", Mesh: gltf.Index(0), Skin: gltf.Index(0)},
	}
	doc.Scenes[0].Nodes = []uint32{0, 1}
	position := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}})
	joints := modeler.WriteJoints(doc, [][4]uint16{{0, 0, 0, 0}})
	weights := modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{
		Attributes: map[string]uint32{"POSITION": position, "JOINTS_0": joints, "WEIGHTS_0": weights},
	}}}}
	doc.Skins = []*gltf.Skin{{Name: "rock", Joints: []uint32{0}}}

	s, err := Load(doc)
	require.NoError(t, err)
	optimize(t, s, config.Default())

	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "rock_root", doc.Nodes[2].Name)
	assert.Equal(t, []uint32{2}, doc.Skins[0].Joints)
	assert.Contains(t, doc.Scenes[0].Nodes, uint32(2))
}

func TestSlidersFromMorphTargets(t *testing.T) {
	doc := testDoc(t)
	smile := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 0.1, 0}, {0, 0, 0}})
	blink := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	mesh := doc.Meshes[0]
	mesh.Primitives[0].Targets = []gltf.Attribute{{"POSITION": smile}, {"POSITION": blink}}
	mesh.Weights = []float32{0.5, 0}
	mesh.Extras = map[string]interface{}{"targetNames": []interface{}{"smile", "blink"}}

	s, err := Load(doc)
	require.NoError(t, err)
	ch := s.Character(0)
	require.Equal(t, 2, ch.NumSliders())

	ann := optchar.NewAnnotations()
	optchar.Classify(ch, ann, config.DefaultTolerance)
	assert.Equal(t, optchar.FlagStatic, ann.Flags(ch.FindSlider("smile")))
	assert.Equal(t, optchar.FlagStatic|optchar.FlagIdentity|optchar.FlagEmpty, ann.Flags(ch.FindSlider("blink")))

	res := optimize(t, s, config.Default())
	assert.Equal(t, []string{"blink"}, res.Sliders[0].Removed)
	assert.Len(t, mesh.Primitives[0].Targets, 1)
	assert.Equal(t, []float32{0.5}, mesh.Weights)
	assert.Equal(t, []string{"smile"}, mesh.Extras.(map[string]interface{})["targetNames"])
}

func TestSaveAndOpen(t *testing.T) {
	doc := testDoc(t)
	s, err := Load(doc)
	require.NoError(t, err)
	optimize(t, s, config.Default())

	path := filepath.Join(t.TempDir(), "dog.glb")
	require.NoError(t, s.Save(path))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Character(0).NumJoints())
	assert.Len(t, reopened.Doc.Skins[0].Joints, 2)
}

func TestTrackSampling(t *testing.T) {
	tr := &track{
		times:  []float32{0, 2},
		values: [][4]float32{{0, 0, 0, 0}, {2, 4, 6, 0}},
		path:   gltf.TRSTranslation,
	}
	assert.Equal(t, [4]float32{1, 2, 3, 0}, tr.sample(1))
	assert.Equal(t, [4]float32{0, 0, 0, 0}, tr.sample(-1))
	assert.Equal(t, [4]float32{2, 4, 6, 0}, tr.sample(5))

	tr.interp = gltf.InterpolationStep
	assert.Equal(t, [4]float32{0, 0, 0, 0}, tr.sample(1.5))

	rot := &track{times: []float32{0, 1}, values: [][4]float32{yaw(0), yaw(1)}, path: gltf.TRSRotation}
	q := utils.QuatFromXYZW(rot.sample(0.5))
	assert.InDelta(t, math.Cos(0.25), q.W, 1e-6)
}
