// Package scenepack loads scenes from JSON or YAML scene documents.
//
// Optional fields fall back to defaults when they are missing or malformed.
// Structural problems, such as a missing camera or an unknown surface type,
// are errors.
package scenepack

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"sigs.k8s.io/yaml"

	"row-major/whitted/camera"
	"row-major/whitted/material"
	"row-major/whitted/rgb"
	"row-major/whitted/scene"
	"row-major/whitted/surface"
	"row-major/whitted/texture"
	"row-major/whitted/transform"
	"row-major/whitted/vmath/vec3"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrUnknownType  = errors.New("unknown type")
	ErrBadValue     = errors.New("bad value")
)

const defaultResolution = 512

// LoadScene reads a scene document from fileName.  Files ending in .yaml or
// .yml are read as YAML, everything else as JSON.
func LoadScene(fileName string) (*scene.Scene, error) {
	fileBytes, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("while opening scene: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	return Parse(fileBytes, ext == ".yaml" || ext == ".yml")
}

// Parse builds a scene from the bytes of a scene document.
func Parse(data []byte, isYAML bool) (*scene.Scene, error) {
	if isYAML {
		jsonBytes, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("while converting YAML scene: %w", err)
		}
		data = jsonBytes
	}

	doc := &structpb.Struct{}
	if err := protojson.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("while unmarshaling scene: %w", err)
	}

	return Build(doc)
}

// Build converts a decoded scene document into a scene.
func Build(doc *structpb.Struct) (*scene.Scene, error) {
	camDoc, ok := structField(doc, "camera")
	if !ok {
		return nil, fmt.Errorf("while reading camera: %w", ErrMissingField)
	}

	surfacesDoc, ok := listField(doc, "surfaces")
	if !ok {
		return nil, fmt.Errorf("while reading surfaces: %w", ErrMissingField)
	}

	s := scene.New(convertCamera(camDoc))

	s.ImageSamples = int(intField(doc, "image_samples", 1))
	if s.ImageSamples < 1 {
		glog.V(2).Infof("image_samples %d raised to 1", s.ImageSamples)
		s.ImageSamples = 1
	}
	s.Background = colorField(doc, "background", rgb.Black)

	b := &builder{
		scene: s,
		named: map[string]int{},
	}

	if namedDoc, ok := structField(doc, "materials"); ok {
		if err := b.addNamedMaterials(namedDoc); err != nil {
			return nil, err
		}
	}

	if err := b.addSurfaces(s.Surfaces, surfacesDoc, "surfaces"); err != nil {
		return nil, err
	}

	return s, nil
}

type builder struct {
	scene *scene.Scene

	// Handles of the materials in the root materials object.
	named map[string]int
}

func (b *builder) addNamedMaterials(doc *structpb.Struct) error {
	names := make([]string, 0, len(doc.GetFields()))
	for name := range doc.GetFields() {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mdoc := doc.GetFields()[name].GetStructValue()
		if mdoc == nil {
			return fmt.Errorf("while reading material %q: %w", name, ErrBadValue)
		}
		m, err := convertMaterial(mdoc)
		if err != nil {
			return fmt.Errorf("while reading material %q: %w", name, err)
		}
		b.named[name] = b.scene.Materials.Add(m)
	}
	return nil
}

func (b *builder) addSurfaces(g *surface.Group, list *structpb.ListValue, path string) error {
	for i, v := range list.GetValues() {
		elemPath := fmt.Sprintf("%s[%d]", path, i)

		sdoc := v.GetStructValue()
		if sdoc == nil {
			return fmt.Errorf("while reading %s: surface is not an object: %w", elemPath, ErrBadValue)
		}

		s, err := b.convertSurface(sdoc, elemPath)
		if err != nil {
			return fmt.Errorf("while reading %s: %w", elemPath, err)
		}
		g.Add(s)
	}
	return nil
}

func (b *builder) convertSurface(doc *structpb.Struct, path string) (surface.Surface, error) {
	typ := stringField(doc, "type", "")

	if typ == "group" {
		children, ok := listField(doc, "surfaces")
		if !ok {
			return nil, fmt.Errorf("while reading group surfaces: %w", ErrMissingField)
		}
		g := &surface.Group{}
		if err := b.addSurfaces(g, children, path+".surfaces"); err != nil {
			return nil, err
		}
		return g, nil
	}

	switch typ {
	case "sphere", "quad":
	default:
		return nil, fmt.Errorf("surface type %q: %w", typ, ErrUnknownType)
	}

	handle, err := b.materialHandle(doc)
	if err != nil {
		return nil, err
	}

	xform := transform.Identity()
	if tdoc, ok := structField(doc, "transform"); ok {
		xform = convertTransform(tdoc)
	}

	if typ == "sphere" {
		return &surface.Sphere{
			Radius:   positiveField(doc, "radius", 1.0),
			Xform:    xform,
			Material: handle,
		}, nil
	}

	return &surface.Quad{
		HalfSize: numberField(doc, "size", 1.0) / 2.0,
		Xform:    xform,
		Material: handle,
	}, nil
}

// materialHandle resolves the material of a surface entry, registering inline
// materials with the scene.
func (b *builder) materialHandle(doc *structpb.Struct) (int, error) {
	v, ok := doc.GetFields()["material"]
	if !ok {
		return 0, fmt.Errorf("while reading material: %w", ErrMissingField)
	}

	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		handle, ok := b.named[k.StringValue]
		if !ok {
			return 0, fmt.Errorf("material %q: %w", k.StringValue, ErrUnknownType)
		}
		return handle, nil
	case *structpb.Value_StructValue:
		m, err := convertMaterial(k.StructValue)
		if err != nil {
			return 0, fmt.Errorf("while reading material: %w", err)
		}
		return b.scene.Materials.Add(m), nil
	}

	return 0, fmt.Errorf("while reading material: %w", ErrBadValue)
}

func convertMaterial(doc *structpb.Struct) (material.Material, error) {
	typ := stringField(doc, "type", "")
	switch typ {
	case "lambertian":
		return &material.Lambertian{
			Albedo: convertTexture(doc.GetFields()["albedo"]),
		}, nil
	}

	return nil, fmt.Errorf("material type %q: %w", typ, ErrUnknownType)
}

// convertTexture reads a color array as a constant texture, or a checker
// object as a checkerboard.
func convertTexture(v *structpb.Value) texture.Texture {
	if tdoc := v.GetStructValue(); tdoc != nil {
		if typ := stringField(tdoc, "type", ""); typ != "checker" {
			glog.V(2).Infof("texture type %q unknown; using black", typ)
			return texture.Constant(rgb.Black)
		}
		return texture.Checkerboard(
			positiveField(tdoc, "period", 1.0),
			convertTexture(tdoc.GetFields()["even"]),
			convertTexture(tdoc.GetFields()["odd"]),
		)
	}

	return texture.Constant(convertColor(v, rgb.Black))
}

func convertCamera(doc *structpb.Struct) *camera.Camera {
	xform := transform.Identity()
	if tdoc, ok := structField(doc, "transform"); ok {
		xform = convertTransform(tdoc)
	}

	resolution := [2]int{defaultResolution, defaultResolution}
	if l, ok := listField(doc, "resolution"); ok {
		for i := 0; i < 2 && i < len(l.GetValues()); i++ {
			n, ok := integerValue(l.GetValues()[i])
			if !ok || n <= 0 {
				glog.V(2).Infof("camera resolution[%d] malformed; using %d", i, defaultResolution)
				continue
			}
			resolution[i] = int(n)
		}
	}

	return camera.New(
		xform,
		numberField(doc, "vfov", 90.0),
		numberField(doc, "fdist", 1.0),
		resolution,
		numberField(doc, "aperture", 0.0),
	)
}

// convertTransform builds translate(o) * rotate(axis, angle), where angle is
// in half turns.
func convertTransform(doc *structpb.Struct) transform.T {
	o := vec3Field(doc, "o")
	axis := vec3Field(doc, "axis")
	angle := numberField(doc, "angle", 0.0)

	return transform.Compose(
		transform.Translate(o),
		transform.Rotate(axis, math.Pi*angle),
	)
}

func structField(doc *structpb.Struct, key string) (*structpb.Struct, bool) {
	s := doc.GetFields()[key].GetStructValue()
	return s, s != nil
}

func listField(doc *structpb.Struct, key string) (*structpb.ListValue, bool) {
	l := doc.GetFields()[key].GetListValue()
	return l, l != nil
}

func stringField(doc *structpb.Struct, key, def string) string {
	v, ok := doc.GetFields()[key]
	if !ok {
		return def
	}
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return s.StringValue
	}
	glog.V(2).Infof("field %q is not a string; using %q", key, def)
	return def
}

func numberField(doc *structpb.Struct, key string, def float64) float64 {
	v, ok := doc.GetFields()[key]
	if !ok {
		return def
	}
	if n, ok := v.GetKind().(*structpb.Value_NumberValue); ok {
		return n.NumberValue
	}
	glog.V(2).Infof("field %q is not a number; using %v", key, def)
	return def
}

// positiveField is numberField restricted to values greater than zero.
func positiveField(doc *structpb.Struct, key string, def float64) float64 {
	v := numberField(doc, key, def)
	if !(v > 0) || math.IsInf(v, 1) {
		glog.V(2).Infof("field %q is %v, not positive; using %v", key, v, def)
		return def
	}
	return v
}

func intField(doc *structpb.Struct, key string, def int64) int64 {
	v, ok := doc.GetFields()[key]
	if !ok {
		return def
	}
	if n, ok := integerValue(v); ok {
		return n
	}
	glog.V(2).Infof("field %q is not an integer; using %v", key, def)
	return def
}

// integerValue returns v as an integer if it is a number with no fractional
// part.
func integerValue(v *structpb.Value) (int64, bool) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, false
	}
	return int64(n.NumberValue), true
}

// vec3Field reads a 3-element array.  Missing or malformed elements are zero.
func vec3Field(doc *structpb.Struct, key string) mgl64.Vec3 {
	l, ok := listField(doc, key)
	if !ok {
		return vec3.Zero
	}
	xs := make([]float64, 0, 3)
	for _, v := range l.GetValues() {
		xs = append(xs, v.GetNumberValue())
	}
	return vec3.FromSlice(xs, vec3.Zero)
}

func colorField(doc *structpb.Struct, key string, def rgb.T) rgb.T {
	return convertColor(doc.GetFields()[key], def)
}

// convertColor reads a 3-element integer array, clamping each channel to
// [0, 255].  Anything that is not an array yields def; malformed channels are
// zero.
func convertColor(v *structpb.Value, def rgb.T) rgb.T {
	l := v.GetListValue()
	if l == nil {
		if v != nil {
			glog.V(2).Infof("color is not an array; using %v", def)
		}
		return def
	}

	var channels [3]int64
	for i := 0; i < 3 && i < len(l.GetValues()); i++ {
		n, _ := integerValue(l.GetValues()[i])
		channels[i] = n
	}
	return rgb.Clamp(channels[0], channels[1], channels[2])
}
