package model

// LocalRegistry marks an image that only exists in the local container engine
const LocalRegistry = ""

// Image is a container image identity. A local image and its pushed remote counterpart share
// Repository and Tag and differ only by Registry.
type Image struct {
	Registry   string
	Repository string
	Tag        string
}

// NewLocalImage returns the image a builder produces for repository at tag
func NewLocalImage(repository, tag string) Image {
	return Image{
		Registry:   LocalRegistry,
		Repository: repository,
		Tag:        tag,
	}
}

// IsLocal reports whether the image has not been pushed to a remote registry
func (img Image) IsLocal() bool {
	return img.Registry == LocalRegistry
}

// WithRegistry returns a copy of img addressed under registry
func (img Image) WithRegistry(registry string) Image {
	img.Registry = registry
	return img
}

// Reference returns the full image reference string
func (img Image) Reference() string {
	ref := img.Repository
	if !img.IsLocal() {
		ref = img.Registry + "/" + ref
	}
	if img.Tag != "" {
		ref = ref + ":" + img.Tag
	}
	return ref
}

// String implements fmt.Stringer
func (img Image) String() string {
	return img.Reference()
}
