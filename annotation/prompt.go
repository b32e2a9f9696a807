package annotation

// SystemPrompt frames the model as a careful extractor.
const SystemPrompt = "You are a careful, rigorous biomedical information extractor."

// ExtractionPrompt defines the five categories and the required output
// shape. Definitions only; examples bias small models toward copying them.
const ExtractionPrompt = `You are an expert biomedical text-mining system.
Your task is to carefully read a given article and extract the names of biological entities,
grouped into the following five categories.

Category Definitions (for guidance only; do not hallucinate):
1. DNA – The entire genetic blueprint; usually referred to as chromosomes or specific DNA regions.
2. Genes – Specific sequences of DNA that code for proteins or RNAs.
3. RNA – Transcribed copies of genes, usually messenger RNA (mRNA), but also includes other RNA types (lncRNA, tRNA, etc.).
4. Proteins – Functional molecules built from amino acids, encoded by genes.
5. Meth-RNA – RNA molecules or transcripts influenced by DNA methylation (epigenetic regulation) OR RNAs with direct methylation marks (e.g., m6A).

Instructions:
- Read the provided article carefully.
- Identify and extract all explicitly mentioned entities under these five categories.
- If an entity could fit more than one category (e.g., gene vs. protein), decide based on local context.
- Output the results strictly in valid JSON with the keys: DNA, Genes, RNA, Proteins, Meth-RNA.
- Do not include any explanations or text outside the JSON.
`

// articleHeader separates the instructions from the article body.
const articleHeader = "\n\n### Article Content (verbatim):\n"

// BuildPrompt concatenates the fixed instructions with the article text.
func BuildPrompt(articleText string) string {
	return ExtractionPrompt + articleHeader + articleText
}
