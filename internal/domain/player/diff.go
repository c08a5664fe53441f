package player

// Field names a tracked attribute of a player.
type Field string

const (
	FieldFirstName     Field = "first_name"
	FieldLastName      Field = "last_name"
	FieldClub          Field = "club"
	FieldClubNumber    Field = "club_number"
	FieldLicenseNumber Field = "license_number"
	FieldDistrict      Field = "district"
	FieldBirthYear     Field = "birth_year"
	FieldGender        Field = "gender"
	FieldRating        Field = "rating"
	FieldFederation    Field = "federation"
)

// Diff lists the tracked fields that differ between two states. Derived
// fields (age class, region) and timestamps are not tracked.
func Diff(before, after Player) []Field {
	var out []Field
	if before.FirstName != after.FirstName {
		out = append(out, FieldFirstName)
	}
	if before.LastName != after.LastName {
		out = append(out, FieldLastName)
	}
	if before.Club != after.Club {
		out = append(out, FieldClub)
	}
	if before.ClubNumber != after.ClubNumber {
		out = append(out, FieldClubNumber)
	}
	if before.LicenseNumber != after.LicenseNumber {
		out = append(out, FieldLicenseNumber)
	}
	if before.District != after.District {
		out = append(out, FieldDistrict)
	}
	if before.BirthYear != after.BirthYear {
		out = append(out, FieldBirthYear)
	}
	if before.Gender != after.Gender {
		out = append(out, FieldGender)
	}
	if !ratingEqual(before.Rating, after.Rating) {
		out = append(out, FieldRating)
	}
	if before.Federation != after.Federation {
		out = append(out, FieldFederation)
	}
	return out
}

func TrackedEqual(a, b Player) bool {
	return len(Diff(a, b)) == 0
}

func DerivedEqual(a, b Player) bool {
	return a.AgeClass == b.AgeClass && a.Region == b.Region
}

func ratingEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
