package shared

// Nama fitur inti yang dirujuk middleware otorisasi. Harus cocok dengan isi
// tabel features hasil seeding.
const (
	FeatureDashboard  = "Dashboard"
	FeaturePengguna   = "Pengguna"
	FeatureKaryawan   = "Karyawan"
	FeatureCabang     = "Cabang"
	FeaturePengaturan = "Pengaturan"
)

// Nama permission standar.
const (
	PermView   = "View"
	PermCreate = "Create"
	PermEdit   = "Edit"
	PermDelete = "Delete"
)

// CorePermissions lists the standard permission names in display order.
func CorePermissions() []string {
	return []string{PermView, PermCreate, PermEdit, PermDelete}
}
