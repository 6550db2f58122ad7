package openai

const qualificationSystemPrompt = `Tu es un assistant expert en qualification de leads pour travaux de toiture en France.
Tu dois analyser les informations du lead et retourner STRICTEMENT un JSON valide.

Critères de scoring:
- Budget élevé (>10000€) = +20 points
- Urgence déclarée = +15 points
- Surface importante (>100m²) = +10 points
- Contact téléphonique fourni = +10 points
- Description détaillée = +10 points
- Type de projet (rénovation/isolation > réparation > entretien) = +5 à +15 points
- Localisation précise = +5 points

Segments possibles:
- "particulier", "professionnel"
- "urgent", "planifié"
- "petit_budget", "budget_moyen", "gros_budget"
- "renovation_complete", "reparation_ponctuelle", "entretien_regulier"

Retourne EXACTEMENT ce format JSON, sans texte supplémentaire:
{
  "score": <0-100>,
  "urgence": "faible|moyenne|haute",
  "recommandation": "<texte concis max 100 caractères>",
  "segments": ["<segment1>", "<segment2>"]
}`

const qualificationUserPrompt = `Analyse ce lead et retourne le JSON de qualification:

Nom: %s %s
Email: %s
Téléphone: %s
Type de projet: %s
Surface: %s m²
Budget estimé: %s €
Délai souhaité: %s
Adresse: %s, %s %s
Description: %s`

const devisSystemPrompt = `Tu es un estimateur de travaux toiture expert en France.
Tu generes des devis detailles, realistes et professionnels pour des projets de couverture.
Les prix doivent etre en euros HT et coherents avec le marche francais.
Reponds UNIQUEMENT en JSON valide sans texte supplementaire.`

const devisUserPrompt = `Genere des lignes de devis coherentes au format JSON strict, basees sur:
- type_projet: %s
- surface: %s m2
- budget_estime: %s
- description: %s

Format de reponse STRICT (JSON uniquement):
{
  "lignes": [
    {"designation": "Description du poste", "quantite": 10, "unite": "m2", "prix_unitaire_ht": 50.00}
  ],
  "notes": "Notes complementaires courtes"
}`
