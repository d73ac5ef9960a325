package gpu

// InternalFormat is the storage layout of a texture.
type InternalFormat int

const (
	FormatR8 InternalFormat = iota
	FormatRG8
	FormatR16
	FormatRGB8
	FormatRGBA8
	FormatRGB565
	FormatRGBA4
	FormatRGB5A1
	FormatRGB10A2
	FormatRGBA16
)

func (f InternalFormat) String() string {
	switch f {
	case FormatR8:
		return "R8"
	case FormatRG8:
		return "RG8"
	case FormatR16:
		return "R16"
	case FormatRGB8:
		return "RGB8"
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGB565:
		return "RGB565"
	case FormatRGBA4:
		return "RGBA4"
	case FormatRGB5A1:
		return "RGB5_A1"
	case FormatRGB10A2:
		return "RGB10_A2"
	case FormatRGBA16:
		return "RGBA16"
	default:
		panic("unknown internal format")
	}
}

// Bits returns the precision of the red, green, blue and alpha channels.
// Missing colour channels have zero bits, a missing alpha channel reads
// back as opaque.
func (f InternalFormat) Bits() [4]int {
	switch f {
	case FormatR8:
		return [4]int{8, 0, 0, 0}
	case FormatRG8:
		return [4]int{8, 8, 0, 0}
	case FormatR16:
		return [4]int{16, 0, 0, 0}
	case FormatRGB8:
		return [4]int{8, 8, 8, 0}
	case FormatRGBA8:
		return [4]int{8, 8, 8, 8}
	case FormatRGB565:
		return [4]int{5, 6, 5, 0}
	case FormatRGBA4:
		return [4]int{4, 4, 4, 4}
	case FormatRGB5A1:
		return [4]int{5, 5, 5, 1}
	case FormatRGB10A2:
		return [4]int{10, 10, 10, 2}
	case FormatRGBA16:
		return [4]int{16, 16, 16, 16}
	default:
		panic("unknown internal format")
	}
}

func (f InternalFormat) HasAlpha() bool {
	return f.Bits()[3] > 0
}

// DataFormat is the client-side layout of pixel data handed to UploadTexture.
type DataFormat int

const (
	DataRed DataFormat = iota
	DataRG
	DataRed16
	DataRGB
	DataBGR
	DataRGBA
	DataBGRA
	DataRGBX
	DataBGRX
	DataRGB565
	DataBGR565
	// DataR210 is BGRA packed as 2_10_10_10 reversed, blue in the low bits.
	DataR210
)

func (d DataFormat) String() string {
	switch d {
	case DataRed:
		return "RED"
	case DataRG:
		return "RG"
	case DataRed16:
		return "RED16"
	case DataRGB:
		return "RGB"
	case DataBGR:
		return "BGR"
	case DataRGBA:
		return "RGBA"
	case DataBGRA:
		return "BGRA"
	case DataRGBX:
		return "RGBX"
	case DataBGRX:
		return "BGRX"
	case DataRGB565:
		return "RGB565"
	case DataBGR565:
		return "BGR565"
	case DataR210:
		return "r210"
	default:
		panic("unknown data format")
	}
}

func (d DataFormat) BytesPerPixel() int {
	switch d {
	case DataRed:
		return 1
	case DataRG, DataRed16, DataRGB565, DataBGR565:
		return 2
	case DataRGB, DataBGR:
		return 3
	case DataRGBA, DataBGRA, DataRGBX, DataBGRX, DataR210:
		return 4
	default:
		panic("unknown data format")
	}
}

// ProgramKind identifies what a fragment program computes. Devices that
// cannot run shader source (the software device) dispatch on it.
type ProgramKind int

const (
	ProgramYUVToRGB ProgramKind = iota
	ProgramYUVToRGBFull
	ProgramGBRPToRGB
	ProgramNV12ToRGB
	ProgramCopy
	ProgramOverlay
	ProgramFixedColour

	NumProgramKinds = int(ProgramFixedColour) + 1
)

func (k ProgramKind) String() string {
	switch k {
	case ProgramYUVToRGB:
		return "YUV_to_RGB"
	case ProgramYUVToRGBFull:
		return "YUV_to_RGB_FULL"
	case ProgramGBRPToRGB:
		return "GBRP_to_RGB"
	case ProgramNV12ToRGB:
		return "NV12_to_RGB"
	case ProgramCopy:
		return "copy"
	case ProgramOverlay:
		return "overlay"
	case ProgramFixedColour:
		return "fixed-colour"
	default:
		panic("unknown program kind")
	}
}
