package sources

// Bundled fallback lists. Served only when no live fetch has ever succeeded
// and no durable snapshot exists. Intentionally small; the live upstream
// carries the full vocabulary.

func seedDrugs() []string {
	return []string{
		"Acetaminophen",
		"Albuterol",
		"Amlodipine",
		"Amoxicillin",
		"Apixaban",
		"Aspirin",
		"Atorvastatin",
		"Azithromycin",
		"Carvedilol",
		"Cephalexin",
		"Ciprofloxacin",
		"Clopidogrel",
		"Doxycycline",
		"Enoxaparin",
		"Furosemide",
		"Gabapentin",
		"Hydrochlorothiazide",
		"Ibuprofen",
		"Insulin glargine",
		"Levothyroxine",
		"Lisinopril",
		"Losartan",
		"Metformin",
		"Metoprolol",
		"Naproxen",
		"Omeprazole",
		"Ondansetron",
		"Pantoprazole",
		"Prednisone",
		"Sertraline",
		"Simvastatin",
		"Warfarin",
	}
}

func seedDiseases() []string {
	return []string{
		"Anemia",
		"Asthma",
		"Atrial fibrillation",
		"Cellulitis",
		"Chronic kidney disease",
		"Chronic obstructive pulmonary disease",
		"Community-acquired pneumonia",
		"Congestive heart failure",
		"Coronary artery disease",
		"Deep vein thrombosis",
		"Diabetes mellitus type 2",
		"Diverticulitis",
		"Gastroesophageal reflux disease",
		"Gout",
		"Hyperlipidemia",
		"Hypertension",
		"Hypothyroidism",
		"Influenza",
		"Migraine",
		"Osteoarthritis",
		"Pancreatitis",
		"Peptic ulcer disease",
		"Pulmonary embolism",
		"Pyelonephritis",
		"Sepsis",
		"Stroke",
		"Urinary tract infection",
	}
}
