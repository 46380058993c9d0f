package format

import (
	"sort"
	"strings"
)

const (
	idAuto ID = iota
	idZip
	idBZip2
	idRar
	idArj
	idZ
	idLzh
	idSevenZip
	idCab
	idNsis
	idLzma
	idLzma86
	idXz
	idPpmd
	idZstd
	idLz4
	idSquashFS
	idCramFS
	idIso
	idUdf
	idWim
	idChm
	idSplit
	idRar5
	idCompound
	idElf
	idPe
	idMacho
	idMub
	idVhd
	idXar
	idDmg
	idHfs
	idCpio
	idDeb
	idRpm
	idTar
	idGZip
)

func at(offset int64, magic ...byte) Signature {
	return Signature{Offset: offset, Magic: magic}
}

func str(offset int64, magic string) Signature {
	return Signature{Offset: offset, Magic: []byte(magic)}
}

func in(id ID, name, ext string, sigs ...Signature) *InFormat {
	return &InFormat{ID: id, Name: name, Extension: ext, Signatures: sigs}
}

// Auto asks the library to detect the format.
var Auto = in(idAuto, "Auto", "")

// Writable formats.
var (
	Zip = &InOutFormat{
		InFormat:      *in(idZip, "Zip", ".zip", str(0, "PK")),
		DefaultMethod: MethodDeflate,
		Methods:       []Method{MethodCopy, MethodDeflate},
		Features:      MultipleFiles | CompressionLevel | Encryption | MultipleMethods,
	}
	SevenZip = &InOutFormat{
		InFormat:      *in(idSevenZip, "7z", ".7z", at(0, '7', 'z', 0xBC, 0xAF, 0x27, 0x1C)),
		DefaultMethod: MethodLzma2,
		Methods:       []Method{MethodCopy, MethodLzma, MethodLzma2, MethodPpmd, MethodBZip2, MethodDeflate},
		Features:      MultipleFiles | SolidArchive | CompressionLevel | Encryption | HeaderEncryption | MultipleMethods,
	}
	Tar = &InOutFormat{
		InFormat:      *in(idTar, "Tar", ".tar", str(0x101, "ustar")),
		DefaultMethod: MethodCopy,
		Methods:       []Method{MethodCopy},
		Features:      MultipleFiles,
	}
	GZip = &InOutFormat{
		InFormat:      *in(idGZip, "GZip", ".gz", at(0, 0x1F, 0x8B, 0x08)),
		DefaultMethod: MethodDeflate,
		Methods:       []Method{MethodDeflate},
		Features:      CompressionLevel,
	}
	BZip2 = &InOutFormat{
		InFormat:      *in(idBZip2, "BZip2", ".bz2", str(0, "BZh")),
		DefaultMethod: MethodBZip2,
		Methods:       []Method{MethodBZip2},
		Features:      CompressionLevel,
	}
	Xz = &InOutFormat{
		InFormat:      *in(idXz, "Xz", ".xz", at(0, 0xFD, '7', 'z', 'X', 'Z', 0x00)),
		DefaultMethod: MethodLzma2,
		Methods:       []Method{MethodLzma2},
		Features:      CompressionLevel,
	}
	Wim = &InOutFormat{
		InFormat:      *in(idWim, "Wim", ".wim", at(0, 'M', 'S', 'W', 'I', 'M', 0, 0, 0)),
		DefaultMethod: MethodCopy,
		Methods:       []Method{MethodCopy},
		Features:      MultipleFiles,
	}
	Zstd = &InOutFormat{
		InFormat:      *in(idZstd, "Zstd", ".zst", at(0, 0x28, 0xB5, 0x2F, 0xFD)),
		DefaultMethod: MethodZstd,
		Methods:       []Method{MethodZstd},
		Features:      CompressionLevel,
	}
	// Lz4 frames are written at the encoder's only level.
	Lz4 = &InOutFormat{
		InFormat:      *in(idLz4, "Lz4", ".lz4", at(0, 0x04, 0x22, 0x4D, 0x18)),
		DefaultMethod: MethodLz4,
		Methods:       []Method{MethodLz4},
	}
)

// Read-only formats.
var (
	Rar      = in(idRar, "Rar", ".rar", at(0, 'R', 'a', 'r', '!', 0x1A, 0x07, 0x00))
	Rar5     = in(idRar5, "Rar5", ".rar", at(0, 'R', 'a', 'r', '!', 0x1A, 0x07, 0x01, 0x00))
	Arj      = in(idArj, "Arj", ".arj", at(0, 0x60, 0xEA))
	Z        = in(idZ, "Z", ".z", at(0, 0x1F, 0x9D), at(0, 0x1F, 0xA0))
	Lzh      = in(idLzh, "Lzh", ".lzh", str(2, "-lh"))
	Cab      = in(idCab, "Cab", ".cab", at(0, 'M', 'S', 'C', 'F', 0, 0, 0, 0))
	Nsis     = in(idNsis, "Nsis", ".nsis", str(8, "Nullsoft"))
	Lzma     = in(idLzma, "Lzma", ".lzma", at(0, 0x5D, 0x00, 0x00))
	Lzma86   = in(idLzma86, "Lzma86", ".lzma86", at(0, 0x01, 0x5D, 0x00))
	Ppmd     = in(idPpmd, "Ppmd", ".pmd", at(0, 0x8F, 0xAF, 0xAC, 0x84))
	Iso      = in(idIso, "Iso", ".iso", str(0x8001, "CD001"))
	Udf      = in(idUdf, "Udf", ".udf")
	Cpio     = in(idCpio, "Cpio", ".cpio", at(0, 0xC7, 'q'), at(0, 'q', 0xC7), str(0, "07070"))
	Deb      = in(idDeb, "Deb", ".deb", str(0, "!<arch>\n"))
	Rpm      = in(idRpm, "Rpm", ".rpm", at(0, 0xED, 0xAB, 0xEE, 0xDB))
	Xar      = in(idXar, "Xar", ".xar", at(0, 'x', 'a', 'r', '!', 0x00, 0x1C))
	Dmg      = in(idDmg, "Dmg", ".dmg")
	Hfs      = in(idHfs, "Hfs", ".hfs", str(0x400, "BD"), at(0x400, 'H', '+', 0x00, 0x04), at(0x400, 'H', 'X', 0x00, 0x05))
	SquashFS = in(idSquashFS, "SquashFS", ".squashfs", str(0, "sqsh"), str(0, "hsqs"), str(0, "shsq"), str(0, "qshs"))
	CramFS   = in(idCramFS, "CramFS", ".cramfs", str(0x10, "Compress"))
	Chm      = in(idChm, "Chm", ".chm", at(0, 'I', 'T', 'S', 'F', 0x03))
	Compound = in(idCompound, "Compound", ".msi", at(0, 0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1))
	Elf      = in(idElf, "Elf", ".elf", at(0, 0x7F, 'E', 'L', 'F'))
	Pe       = in(idPe, "Pe", ".exe", str(0, "MZ"))
	Macho    = in(idMacho, "Macho", ".dylib",
		at(0, 0xCE, 0xFA, 0xED, 0xFE), at(0, 0xCF, 0xFA, 0xED, 0xFE),
		at(0, 0xFE, 0xED, 0xFA, 0xCE), at(0, 0xFE, 0xED, 0xFA, 0xCF))
	Mub   = in(idMub, "Mub", ".mub", at(0, 0xCA, 0xFE, 0xBA, 0xBE), at(0, 0xB9, 0xFA, 0xF1, 0x0E))
	Vhd   = in(idVhd, "Vhd", ".vhd", str(0, "conectix"))
	Split = in(idSplit, "Split", ".001")
)

var (
	inFormats []*InFormat
	outByID   = map[ID]*InOutFormat{}
	byName    = map[string]*InFormat{}
	byExt     = map[string]*InFormat{}
	bySig     []sigEntry
)

type sigEntry struct {
	sig    Signature
	format *InFormat
}

// extra extensions recognised for a format beyond its default one
var extAliases = map[string]*InFormat{
	".bzip2": BZip2.In(), ".tbz2": BZip2.In(), ".tbz": BZip2.In(),
	".gzip": GZip.In(), ".tgz": GZip.In(),
	".swm": Wim.In(),
	".txz": Xz.In(),
	".zipx": Zip.In(), ".jar": Zip.In(), ".xpi": Zip.In(), ".odt": Zip.In(), ".ods": Zip.In(),
	".odp": Zip.In(), ".docx": Zip.In(), ".xlsx": Zip.In(), ".pptx": Zip.In(), ".epub": Zip.In(),
	".zstd": Zstd.In(), ".tzst": Zstd.In(),
	".ar": Deb, ".chi": Chm, ".doc": Compound, ".xls": Compound, ".ppt": Compound, ".msg": Compound,
	".dll": Pe, ".hfsx": Hfs, ".lha": Lzh, ".pkg": Xar, ".taz": Z, ".img": Iso,
}

func init() {
	for _, f := range []*InOutFormat{Zip, SevenZip, Tar, GZip, BZip2, Xz, Wim, Zstd, Lz4} {
		outByID[f.ID] = f
		register(f.In())
	}
	for _, f := range []*InFormat{
		Rar, Rar5, Arj, Z, Lzh, Cab, Nsis, Lzma, Lzma86, Ppmd, Iso, Udf, Cpio, Deb, Rpm,
		Xar, Dmg, Hfs, SquashFS, CramFS, Chm, Compound, Elf, Pe, Macho, Mub, Vhd, Split,
	} {
		register(f)
	}
	for ext, f := range extAliases {
		byExt[ext] = f
	}
	// Rar5 shares the extension; the signature tells them apart.
	byExt[".rar"] = Rar
	byName["sevenzip"] = SevenZip.In()
	// longest magic first, then lowest offset
	sort.SliceStable(bySig, func(i, j int) bool {
		a, b := bySig[i].sig, bySig[j].sig
		if len(a.Magic) != len(b.Magic) {
			return len(a.Magic) > len(b.Magic)
		}
		return a.Offset < b.Offset
	})
}

func register(f *InFormat) {
	inFormats = append(inFormats, f)
	byName[strings.ToLower(f.Name)] = f
	if f.Extension != "" {
		if _, ok := byExt[f.Extension]; !ok {
			byExt[f.Extension] = f
		}
	}
	for _, s := range f.Signatures {
		bySig = append(bySig, sigEntry{sig: s, format: f})
	}
}

// All returns every readable format in catalog order.
func All() []*InFormat {
	ret := make([]*InFormat, len(inFormats))
	copy(ret, inFormats)
	return ret
}

// AllWritable returns every writable format.
func AllWritable() []*InOutFormat {
	ret := make([]*InOutFormat, 0, len(outByID))
	for _, f := range inFormats {
		if out, ok := outByID[f.ID]; ok {
			ret = append(ret, out)
		}
	}
	return ret
}

// ByName looks a format up by its canonical name, case-insensitively.
// "auto" resolves to Auto.
func ByName(name string) (*InFormat, bool) {
	if strings.EqualFold(name, Auto.Name) {
		return Auto, true
	}
	f, ok := byName[strings.ToLower(name)]
	return f, ok
}
