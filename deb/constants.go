package deb

// ControlField represents a standard field in a Debian control file.
type ControlField string

const (
	FieldPackage      ControlField = "Package"
	FieldVersion      ControlField = "Version"
	FieldArchitecture ControlField = "Architecture"
	FieldMaintainer   ControlField = "Maintainer"
	FieldDescription  ControlField = "Description"
	FieldSection      ControlField = "Section"
	FieldPriority     ControlField = "Priority"
	FieldHomepage     ControlField = "Homepage"
	FieldDepends      ControlField = "Depends"
	FieldFilename     ControlField = "Filename"
	FieldSize         ControlField = "Size"
	FieldMD5sum       ControlField = "MD5sum"
	FieldSHA1         ControlField = "SHA1"
	FieldSHA256       ControlField = "SHA256"
)

// ArchAll is the wildcard architecture for packages that install on any
// instruction set (scripts, documentation, data files).
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-architecture
const ArchAll = "all"

// PackageFile represents a standard member of the .deb archive (ar format).
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTarGz PackageFile = "control.tar.gz"
	PkgDataTarGz    PackageFile = "data.tar.gz"
)

// ReleaseField represents a standard field in a Debian Release file.
type ReleaseField string

const (
	RelOrigin               ReleaseField = "Origin"
	RelLabel                ReleaseField = "Label"
	RelSuite                ReleaseField = "Suite"
	RelVersion              ReleaseField = "Version"
	RelCodename             ReleaseField = "Codename"
	RelDate                 ReleaseField = "Date"
	RelValidUntil           ReleaseField = "Valid-Until"
	RelArchitectures        ReleaseField = "Architectures"
	RelComponents           ReleaseField = "Components"
	RelDescription          ReleaseField = "Description"
	RelNotAutomatic         ReleaseField = "NotAutomatic"
	RelButAutomaticUpgrades ReleaseField = "ButAutomaticUpgrades"
	RelAcquireByHash        ReleaseField = "Acquire-By-Hash"
	RelMD5Sum               ReleaseField = "MD5Sum"
	RelSHA1                 ReleaseField = "SHA1"
	RelSHA256               ReleaseField = "SHA256"
)
