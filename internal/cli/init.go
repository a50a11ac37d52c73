package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// starterRules is the ruleset written by `stylegate init`: the gym
// context for pants, shirts, and shoes, with the metadata-first
// ordering spelled out per category.
const starterRules = `version: "1"
contexts:
  gym:
    occasions:
      allow: [athletic, gym, sport, sports, workout]
      block: [formal, business, wedding]
    categories:
      pants:
        aliases: [shorts, jeans, joggers, leggings, sweatpants]
        metadata:
          - attribute: waistbandType
            allow: [elastic, drawstring, elastic_drawstring]
            block: [button_zip, belted, buttoned]
          - attribute: material
            allow: [polyester, spandex, nylon, mesh, fleece]
            block: [denim, cotton twill, wool, corduroy, leather]
        types:
          allow: [shorts, leggings, joggers, sweatpants]
          block: []
        keywords:
          allow: [jogger, joggers, sweatpants, sweats, track, athletic, gym, running, legging, leggings]
          block: [jean, jeans, cargo, chino, chinos, dress, slacks, khaki, khakis, trouser, trousers]
      shirts:
        aliases: [shirt, tshirt, tank, blouse]
        metadata:
          - attribute: neckline
            allow: [crew, v_neck, scoop]
            block: [collared, button_down]
          - attribute: sleeveLength
            allow: [sleeveless, short]
            block: [french_cuff]
        types:
          allow: [tshirt, tank]
          block: [blouse]
        keywords:
          allow: [tee, tank, jersey, athletic, gym, training]
          block: [oxford, flannel, dress, tuxedo, polo]
      shoes:
        aliases: [shoe, sneakers, boots, sandals]
        metadata:
          - attribute: shoeType
            allow: [sneaker, trainer, running, cross_trainer]
            block: [oxford, loafer, heel, dress, boot, sandal]
          - name: nonathletic-leather
            when: 'attrs.material == "leather" && !((attrs.shoeType ?? "") in ["sneaker", "trainer", "running", "cross_trainer"])'
            decision: block
          - attribute: material
            allow: [mesh, knit, canvas]
            block: [suede, patent]
        types:
          allow: [sneakers]
          block: [boots, sandals, heels]
        keywords:
          allow: [sneaker, sneakers, trainer, trainers, running, runner]
          block: [oxford, loafer, loafers, heel, heels, derby, brogue]
`

// starterCatalog gives check/explain something to chew on out of the
// box, covering each stage of the chain.
const starterCatalog = `[
  {
    "id": "p1",
    "type": "pants",
    "name": "pants cargo khaki",
    "metadata": {"visualAttributes": {"waistbandType": "button_zip", "material": "cotton twill"}}
  },
  {
    "id": "p2",
    "type": "shorts",
    "name": "shorts athletic blue by rams",
    "metadata": {"visualAttributes": {"waistbandType": "elastic", "material": "polyester"}}
  },
  {
    "id": "p3",
    "type": "pants",
    "name": "pants jeans light blue by levis",
    "metadata": {"visualAttributes": {"material": "denim", "waistbandType": "button_zip"}}
  },
  {
    "id": "p4",
    "type": "pants",
    "name": "performance pants",
    "occasion": ["athletic"],
    "metadata": {}
  },
  {
    "id": "p5",
    "type": "shorts",
    "name": "plain shorts",
    "metadata": {}
  },
  {
    "id": "p6",
    "type": "pants",
    "name": "jogger pants",
    "metadata": {}
  },
  {
    "id": "s1",
    "type": "shoes",
    "name": "brown leather loafers",
    "metadata": {"visualAttributes": {"material": "leather", "shoeType": "loafer"}}
  },
  {
    "id": "s2",
    "type": "shoes",
    "name": "leather trainers",
    "metadata": {"visualAttributes": {"material": "leather", "shoeType": "trainer"}}
  }
]
`

// RunInit writes a starter ruleset and catalog into dir (default ".").
// Existing files are left alone.
func RunInit(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	fmt.Println("stylegate init")
	fmt.Println("==============")
	fmt.Println()

	wrote := false
	for _, f := range []struct {
		name, content string
	}{
		{"rules.yaml", starterRules},
		{"items.json", starterCatalog},
	} {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("  %-12s exists, skipped\n", f.name)
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		fmt.Printf("  %-12s written\n", f.name)
		wrote = true
	}

	fmt.Println()
	if wrote {
		fmt.Println("Next steps:")
		fmt.Printf("  stylegate validate -rules %s\n", filepath.Join(dir, "rules.yaml"))
		fmt.Printf("  stylegate check -rules %s -catalog %s -context gym\n",
			filepath.Join(dir, "rules.yaml"), filepath.Join(dir, "items.json"))
	} else {
		fmt.Println("Nothing to do.")
	}
	return nil
}
